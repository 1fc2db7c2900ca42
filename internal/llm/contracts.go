package llm

import "context"

// Reading is the normalized shape we want from the extraction model: one
// {name, value, unit} triple, with an optional model-reported confidence.
type Reading struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Confidence float32 `json:"confidence,omitempty"` // optional (0..1)
}

// ExtractionRequest carries document bytes (whole document or one page
// chunk) to the vision extraction model.
type ExtractionRequest struct {
	Document  []byte
	MimeType  string
	PageRange string // e.g. "3-4"; empty for whole-document extraction
	Hint      string // optional filename or context hint
}

// ExtractionResult is the parsed stage-1 output plus the raw model JSON for
// persistence/debugging.
type ExtractionResult struct {
	Readings []Reading
	Raw      []byte
}

// BiomarkerExtractor is the single capability boundary for the extraction
// model; provider payload shapes stay behind it.
type BiomarkerExtractor interface {
	ExtractBiomarkers(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
	ModelName() string
	EffortLevel() string
}

// VerificationRequest re-submits stage-1 output for confirmation.
type VerificationRequest struct {
	Readings  []Reading
	PageRange string
	Context   string // optional source context
}

// VerificationResult reports whether the readings were confirmed. A failed
// verification is content, not an error: corrected (or flagged) data still
// proceeds downstream for human review.
type VerificationResult struct {
	Passed        bool      `json:"passed"`
	Corrections   []string  `json:"corrections"`
	CorrectedData []Reading `json:"corrected_data,omitempty"`
	Raw           []byte    `json:"-"`
}

// Verifier is the single capability boundary for the verification model.
type Verifier interface {
	VerifyBiomarkers(ctx context.Context, req VerificationRequest) (VerificationResult, error)
	ModelName() string
	EffortLevel() string
}
