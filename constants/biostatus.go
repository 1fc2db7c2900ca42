package constants

// BiomarkerStatus classifies a converted value against a reference range.
type BiomarkerStatus string

const (
	BiomarkerNormal   BiomarkerStatus = "normal"
	BiomarkerLow      BiomarkerStatus = "low"
	BiomarkerHigh     BiomarkerStatus = "high"
	BiomarkerCritical BiomarkerStatus = "critical"
)

// ProcessingStage labels the substage shown while an upload is in flight.
const (
	StageChunkPlanning = "chunk_planning"
	StageExtraction    = "extraction"
	StageVerification  = "verification"
	StageMerge         = "merge"
	StageMatching      = "matching"
)
