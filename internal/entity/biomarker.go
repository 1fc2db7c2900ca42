package entity

// ExtractedBiomarker is one reading produced by the extraction stage, before
// catalog reconciliation. Page is the 1-based source page for chunked
// documents, 0 for whole-document extraction.
type ExtractedBiomarker struct {
	OriginalName string  `json:"original_name"`
	RawValue     float64 `json:"raw_value"`
	RawUnit      string  `json:"raw_unit"`
	Page         int     `json:"page,omitempty"`
	Confidence   float32 `json:"confidence,omitempty"` // model-reported, 0 when absent
}

// ConversionApplied records a unit normalization performed during matching.
type ConversionApplied struct {
	FromValue float64 `json:"from_value"`
	FromUnit  string  `json:"from_unit"`
	ToValue   float64 `json:"to_value"`
	ToUnit    string  `json:"to_unit"`
}

// BiomarkerMatchDetail is the per-biomarker record of whether/how an
// extracted reading was reconciled against the catalog. Unmatched readings
// are retained with MatchedCode nil, never dropped.
type BiomarkerMatchDetail struct {
	OriginalName      string             `json:"original_name"`
	MatchedCode       *string            `json:"matched_code,omitempty"`
	MatchedName       *string            `json:"matched_name,omitempty"`
	Value             float64            `json:"value"`
	Unit              string             `json:"unit"`
	ConversionApplied *ConversionApplied `json:"conversion_applied,omitempty"`
	Status            string             `json:"status,omitempty"`
	ValidationIssues  []string           `json:"validation_issues,omitempty"`
}
