package entity

// Stage1Info captures the extraction pass.
type Stage1Info struct {
	Model               string `json:"model"`
	ThinkingLevel       string `json:"thinking_level,omitempty"`
	DurationMs          int64  `json:"duration_ms"`
	BiomarkersExtracted int    `json:"biomarkers_extracted"`
	PagesProcessed      *int   `json:"pages_processed,omitempty"`      // chunked only
	AvgPageDurationMs   *int64 `json:"avg_page_duration_ms,omitempty"` // chunked only
}

// Stage2Info captures the verification pass. When Skipped is true no model
// call was made and the remaining fields are zero-valued.
type Stage2Info struct {
	Model              string `json:"model,omitempty"`
	ReasoningEffort    string `json:"reasoning_effort,omitempty"`
	DurationMs         int64  `json:"duration_ms"`
	VerificationPassed bool   `json:"verification_passed"`
	CorrectionsCount   int    `json:"corrections_count"`
	Skipped            bool   `json:"skipped"`
	PagesPassed        *int   `json:"pages_passed,omitempty"` // chunked only
	PagesFailed        *int   `json:"pages_failed,omitempty"` // chunked only
}

// MergeInfo is present only for chunked documents.
// Invariant: TotalBiomarkersBeforeMerge - DuplicatesRemoved == TotalBiomarkersAfterMerge.
type MergeInfo struct {
	TotalBiomarkersBeforeMerge int `json:"total_biomarkers_before_merge"`
	TotalBiomarkersAfterMerge  int `json:"total_biomarkers_after_merge"`
	DuplicatesRemoved          int `json:"duplicates_removed"`
	ConflictsResolved          int `json:"conflicts_resolved"`
}

// Stage3Info captures catalog reconciliation.
// MatchedCount + UnmatchedCount always equals len(MatchDetails).
type Stage3Info struct {
	StandardsCount int                    `json:"standards_count"`
	UserGender     string                 `json:"user_gender"`
	DurationMs     int64                  `json:"duration_ms"`
	MatchedCount   int                    `json:"matched_count"`
	UnmatchedCount int                    `json:"unmatched_count"`
	MatchDetails   []BiomarkerMatchDetail `json:"match_details"`
}

// ExtractionDebugInfo is the per-upload telemetry record. Exactly one exists
// per pipeline run; the orchestrator appends stage-by-stage and never mutates
// it after the upload reaches a terminal status.
type ExtractionDebugInfo struct {
	TotalDurationMs int64       `json:"total_duration_ms"`
	PDFSizeBytes    int64       `json:"pdf_size_bytes"`
	IsChunked       bool        `json:"is_chunked"`
	PageCount       *int        `json:"page_count,omitempty"`
	Stage1          *Stage1Info `json:"stage1,omitempty"`
	Stage2          *Stage2Info `json:"stage2,omitempty"`
	MergeStage      *MergeInfo  `json:"merge_stage,omitempty"`
	Stage3          *Stage3Info `json:"stage3,omitempty"`
}
