// Package pipeline coordinates the lab-document biomarker pipeline: vision
// extraction, verification, chunk merge and catalog matching, with per-stage
// timing captured in ExtractionDebugInfo.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/match"
	"github.com/joseph-ayodele/labs-tracker/internal/metrics"
	"github.com/joseph-ayodele/labs-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
)

// Orchestrator owns the upload state machine for the lifetime of a run. It
// holds exactly one in-flight ExtractionDebugInfo per upload, appends to it
// stage-by-stage and never touches it after the upload goes terminal. If the
// upload is deleted mid-run, in-flight model calls complete but their
// results are discarded: existence is checked before committing any stage
// output.
type Orchestrator struct {
	Uploads      repository.LabUploadRepository
	Splitter     pdfdoc.Splitter
	Extraction   *ExtractionStage
	Verification *VerificationStage
	Merge        *MergeStage
	Matching     *match.Stage
	Metrics      metrics.Recorder

	ChunkPageThreshold int
	PagesPerChunk      int
	Log                *slog.Logger
}

func NewOrchestrator(
	uploads repository.LabUploadRepository,
	splitter pdfdoc.Splitter,
	extraction *ExtractionStage,
	verification *VerificationStage,
	merge *MergeStage,
	matching *match.Stage,
	recorder metrics.Recorder,
	chunkPageThreshold, pagesPerChunk int,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if chunkPageThreshold <= 0 {
		chunkPageThreshold = 3
	}
	if pagesPerChunk <= 0 {
		pagesPerChunk = 1
	}
	return &Orchestrator{
		Uploads:            uploads,
		Splitter:           splitter,
		Extraction:         extraction,
		Verification:       verification,
		Merge:              merge,
		Matching:           matching,
		Metrics:            recorder,
		ChunkPageThreshold: chunkPageThreshold,
		PagesPerChunk:      pagesPerChunk,
		Log:                logger,
	}
}

// Process runs the full pipeline for an upload and returns its debug info.
// On fatal stage errors the upload moves to error with errorMessage set and
// the stage error is returned.
func (o *Orchestrator) Process(ctx context.Context, uploadID uuid.UUID, doc []byte) (*entity.ExtractionDebugInfo, error) {
	start := time.Now()
	upload, err := o.Uploads.GetByID(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	gender, _ := constants.ParseGender(upload.Gender)

	debug := &entity.ExtractionDebugInfo{PDFSizeBytes: int64(len(doc))}
	if err := o.Uploads.MarkStarted(ctx, uploadID); err != nil {
		return nil, err
	}

	// Chunk planning
	if err := o.transition(ctx, uploadID, constants.UploadStatusFetching, constants.StageChunkPlanning); err != nil {
		return debug, err
	}
	pageCount, err := o.Splitter.PageCount(doc)
	if err != nil {
		return debug, o.fail(ctx, uploadID, debug, fmt.Errorf("%w: page count: %v", common.ErrExtraction, err))
	}
	debug.PageCount = &pageCount
	debug.IsChunked = pageCount > o.ChunkPageThreshold

	// Stage 1: extraction
	if err := o.transition(ctx, uploadID, constants.UploadStatusExtracting, constants.StageExtraction); err != nil {
		return debug, err
	}
	stageStart := time.Now()
	var chunkResults []ChunkReadings
	var stage1 *entity.Stage1Info
	if debug.IsChunked {
		chunks, splitErr := o.Splitter.Split(doc, o.PagesPerChunk)
		if splitErr != nil {
			return debug, o.fail(ctx, uploadID, debug, fmt.Errorf("%w: split: %v", common.ErrExtraction, splitErr))
		}
		chunkResults, stage1, err = o.Extraction.ExtractChunks(ctx, chunks, upload.Filename)
	} else {
		var single ChunkReadings
		single, stage1, err = o.Extraction.ExtractDocument(ctx, doc, upload.Filename)
		chunkResults = []ChunkReadings{single}
	}
	o.Metrics.ObserveStageDuration(constants.StageExtraction, time.Since(stageStart))
	if err != nil {
		return debug, o.fail(ctx, uploadID, debug, err)
	}
	debug.Stage1 = stage1
	if alive, aErr := o.stillOwned(ctx, uploadID); aErr != nil || !alive {
		return debug, o.discarded(uploadID, aErr)
	}

	// Stage 2: verification (skipped in place when the upload opted out)
	var corrections []string
	var verificationPassed *bool
	if upload.SkipVerification {
		debug.Stage2 = SkippedInfo()
		o.Log.Info("pipeline.verify.skipped", "upload_id", uploadID)
	} else {
		if err := o.transition(ctx, uploadID, constants.UploadStatusVerifying, constants.StageVerification); err != nil {
			return debug, err
		}
		stageStart = time.Now()
		var stage2 *entity.Stage2Info
		chunkResults, stage2, corrections, err = o.Verification.Verify(ctx, chunkResults, debug.IsChunked)
		o.Metrics.ObserveStageDuration(constants.StageVerification, time.Since(stageStart))
		if err != nil {
			return debug, o.fail(ctx, uploadID, debug, err)
		}
		debug.Stage2 = stage2
		verificationPassed = &stage2.VerificationPassed
		if alive, aErr := o.stillOwned(ctx, uploadID); aErr != nil || !alive {
			return debug, o.discarded(uploadID, aErr)
		}
	}

	// Merge (chunked only), then stage 3: matching
	var merged []entity.ExtractedBiomarker
	if debug.IsChunked {
		if err := o.transition(ctx, uploadID, constants.UploadStatusMatching, constants.StageMerge); err != nil {
			return debug, err
		}
		stageStart = time.Now()
		var mergeInfo entity.MergeInfo
		merged, mergeInfo = o.Merge.Run(chunkResults)
		o.Metrics.ObserveStageDuration(constants.StageMerge, time.Since(stageStart))
		if mergeInfo.TotalBiomarkersBeforeMerge-mergeInfo.DuplicatesRemoved != mergeInfo.TotalBiomarkersAfterMerge {
			return debug, o.fail(ctx, uploadID, debug,
				fmt.Errorf("%w: merge counts inconsistent", common.ErrMergeConflict))
		}
		debug.MergeStage = &mergeInfo
	} else {
		for _, r := range chunkResults[0].Readings {
			merged = append(merged, entity.ExtractedBiomarker{
				OriginalName: r.Name,
				RawValue:     r.Value,
				RawUnit:      r.Unit,
				Page:         1,
				Confidence:   r.Confidence,
			})
		}
	}

	if err := o.transition(ctx, uploadID, constants.UploadStatusMatching, constants.StageMatching); err != nil {
		return debug, err
	}
	stageStart = time.Now()
	stage3, err := o.Matching.Run(ctx, merged, gender)
	o.Metrics.ObserveStageDuration(constants.StageMatching, time.Since(stageStart))
	if err != nil {
		return debug, o.fail(ctx, uploadID, debug, err)
	}
	debug.Stage3 = stage3
	debug.TotalDurationMs = time.Since(start).Milliseconds()

	extractedData, err := json.Marshal(stage3.MatchDetails)
	if err != nil {
		return debug, o.fail(ctx, uploadID, debug, fmt.Errorf("marshal results: %w", err))
	}
	debugJSON, _ := json.Marshal(debug)

	if alive, aErr := o.stillOwned(ctx, uploadID); aErr != nil || !alive {
		return debug, o.discarded(uploadID, aErr)
	}
	if err := o.Uploads.Complete(ctx, uploadID, repository.CompleteParams{
		ExtractedData:        extractedData,
		ExtractionConfidence: overallConfidence(merged, stage3),
		VerificationPassed:   verificationPassed,
		Corrections:          corrections,
		DebugInfo:            debugJSON,
	}); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return debug, o.discarded(uploadID, nil)
		}
		return debug, err
	}

	o.Metrics.IncPipelineOutcome("complete")
	o.Log.Info("pipeline.complete",
		"upload_id", uploadID,
		"matched", stage3.MatchedCount,
		"unmatched", stage3.UnmatchedCount,
		"chunked", debug.IsChunked,
		"total_ms", debug.TotalDurationMs,
	)
	return debug, nil
}

func (o *Orchestrator) transition(ctx context.Context, id uuid.UUID, status constants.UploadStatus, stage string) error {
	err := o.Uploads.SetStatus(ctx, id, status, &stage)
	if errors.Is(err, common.ErrNotFound) {
		return o.discarded(id, nil)
	}
	return err
}

// stillOwned re-checks upload existence before committing stage output, so
// results of calls that outlived a deletion are thrown away.
func (o *Orchestrator) stillOwned(ctx context.Context, id uuid.UUID) (bool, error) {
	return o.Uploads.Exists(ctx, id)
}

func (o *Orchestrator) discarded(id uuid.UUID, cause error) error {
	o.Metrics.IncPipelineOutcome("discarded")
	o.Log.Warn("pipeline.discarded", "upload_id", id, "cause", cause)
	if cause != nil {
		return cause
	}
	return common.ErrNotFound
}

func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, debug *entity.ExtractionDebugInfo, cause error) error {
	debugJSON, _ := json.Marshal(debug)
	if err := o.Uploads.Fail(ctx, id, cause.Error(), debugJSON); err != nil && !errors.Is(err, common.ErrNotFound) {
		o.Log.Error("pipeline.fail_update_failed", "upload_id", id, "err", err)
	}
	o.Metrics.IncPipelineOutcome("error")
	o.Log.Error("pipeline.failed", "upload_id", id, "error", cause)
	return cause
}

// overallConfidence is the mean of model-reported reading confidences when
// any were reported, otherwise the matched ratio.
func overallConfidence(readings []entity.ExtractedBiomarker, stage3 *entity.Stage3Info) float32 {
	var sum float32
	n := 0
	for _, r := range readings {
		if r.Confidence > 0 {
			sum += r.Confidence
			n++
		}
	}
	if n > 0 {
		return sum / float32(n)
	}
	total := stage3.MatchedCount + stage3.UnmatchedCount
	if total == 0 {
		return 0
	}
	return float32(stage3.MatchedCount) / float32(total)
}
