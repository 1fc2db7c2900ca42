package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LabUpload represents a lab-report upload for data transfer between layers.
// Mutated only by the pipeline orchestrator; terminal once Status reaches
// complete or error.
type LabUpload struct {
	ID                   uuid.UUID       `json:"id"`
	Status               string          `json:"status"`
	ProcessingStage      *string         `json:"processing_stage,omitempty"`
	SkipVerification     bool            `json:"skip_verification"`
	Gender               string          `json:"gender"`
	Filename             string          `json:"filename,omitempty"`
	PDFSizeBytes         int64           `json:"pdf_size_bytes,omitempty"`
	ExtractedData        json.RawMessage `json:"extracted_data,omitempty"` // []BiomarkerMatchDetail, null until complete
	ExtractionConfidence *float32        `json:"extraction_confidence,omitempty"`
	VerificationPassed   *bool           `json:"verification_passed,omitempty"`
	Corrections          []string        `json:"corrections,omitempty"`
	ErrorMessage         *string         `json:"error_message,omitempty"`
	DebugInfo            json.RawMessage `json:"debug_info,omitempty"` // ExtractionDebugInfo
	CreatedAt            time.Time       `json:"created_at"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}
