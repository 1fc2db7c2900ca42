package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reNumeric = regexp.MustCompile(`-?\d+(\.\d+)?`)

// SanitizeReadings repairs a readings document that fails strict schema
// validation: numeric values delivered as strings are coerced, readings with
// a missing name or unusable value are dropped, stray fields are removed.
// Returns the cleaned document and the names of dropped readings.
func SanitizeReadings(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	rawList, ok := m["biomarkers"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("no biomarkers array in document")
	}

	var dropped []string
	cleaned := make([]any, 0, len(rawList))
	for _, item := range rawList {
		obj, ok := item.(map[string]any)
		if !ok {
			dropped = append(dropped, "<non-object>")
			continue
		}
		name, _ := obj["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			dropped = append(dropped, "<unnamed>")
			continue
		}

		value, ok := coerceNumber(obj["value"])
		if !ok {
			dropped = append(dropped, name)
			continue
		}

		unit, _ := obj["unit"].(string)
		out := map[string]any{
			"name":  name,
			"value": value,
			"unit":  strings.TrimSpace(unit),
		}
		if conf, ok := coerceNumber(obj["confidence"]); ok && conf >= 0 && conf <= 1 {
			out["confidence"] = conf
		}
		cleaned = append(cleaned, out)
	}

	b, err := json.Marshal(map[string]any{"biomarkers": cleaned})
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

// coerceNumber accepts float64, numeric strings, and strings with a leading
// comparator ("<0.5") or trailing unit noise ("7.2 mg/dL").
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		if match := reNumeric.FindString(s); match != "" {
			if f, err := strconv.ParseFloat(match, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
