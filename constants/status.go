package constants

// UploadStatus is the canonical status for rows in lab_upload.
type UploadStatus string

// Stable values (store these exact strings in DB).
const (
	UploadStatusPending    UploadStatus = "pending"           // created, not yet picked up
	UploadStatusUploading  UploadStatus = "uploading"         // document bytes being received
	UploadStatusFetching   UploadStatus = "fetching_pdf"      // page count / chunk planning
	UploadStatusExtracting UploadStatus = "extracting_gemini" // stage 1: vision extraction
	UploadStatusVerifying  UploadStatus = "verifying_gpt"     // stage 2: verification pass
	UploadStatusMatching   UploadStatus = "matching"          // stage 3: catalog reconciliation
	UploadStatusComplete   UploadStatus = "complete"          // terminal success
	UploadStatusError      UploadStatus = "error"             // terminal failure
)

// order holds the strictly forward progression of non-terminal work.
var order = map[UploadStatus]int{
	UploadStatusPending:    0,
	UploadStatusUploading:  1,
	UploadStatusFetching:   2,
	UploadStatusExtracting: 3,
	UploadStatusVerifying:  4,
	UploadStatusMatching:   5,
	UploadStatusComplete:   6,
}

// Terminal reports whether no further transition is allowed from s.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusComplete || s == UploadStatusError
}

// CanTransition reports whether moving from -> to is legal. Transitions are
// strictly forward; error is reachable from any non-terminal state. Skipping
// intermediate states forward is allowed (verification is skipped in place
// when the upload opts out).
func CanTransition(from, to UploadStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == UploadStatusError {
		return true
	}
	fi, ok := order[from]
	if !ok {
		return false
	}
	ti, ok := order[to]
	if !ok {
		return false
	}
	return ti > fi
}
