package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// StripFences removes a markdown code fence the model may wrap its JSON in.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// DecodeReadings validates a model response strictly against the readings
// schema, falls back to a lenient sanitize pass, and unmarshals. The
// returned raw bytes are the (possibly cleaned) document that validated.
func DecodeReadings(log *slog.Logger, content []byte) ([]Reading, []byte, error) {
	schema := BuildReadingsJSONSchema()
	raw := content

	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		cleaned, dropped, sErr := SanitizeReadings(raw)
		if sErr != nil {
			return nil, raw, fmt.Errorf("schema validation failed: %w", err)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return nil, raw, fmt.Errorf("schema validation failed after sanitize: %w", vErr)
		}
		log.Warn("llm.readings.lenient_sanitize_applied", "dropped", dropped)
		raw = cleaned
	}

	var doc struct {
		Biomarkers []Reading `json:"biomarkers"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, raw, fmt.Errorf("unmarshal readings: %w", err)
	}
	return doc.Biomarkers, raw, nil
}
