package llm

// BuildReadingsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the extraction model as a structured output
// constraint and also use it locally to validate.
func BuildReadingsJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"biomarkers": map[string]any{
				"type":  "array",
				"items": readingProp(),
			},
		},
		"required":             []string{"biomarkers"},
		"additionalProperties": false,
	}
}

// BuildVerificationJSONSchema constrains the verification model's verdict.
func BuildVerificationJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"passed": map[string]any{"type": "boolean"},
			"corrections": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"corrected_data": map[string]any{
				"type":  "array",
				"items": readingProp(),
			},
		},
		"required":             []string{"passed", "corrections"},
		"additionalProperties": false,
	}
}

func readingProp() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "minLength": 1},
			"value":      map[string]any{"type": "number"},
			"unit":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required":             []string{"name", "value", "unit"},
		"additionalProperties": false,
	}
}
