package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/llm"
	"github.com/joseph-ayodele/labs-tracker/internal/retry"
)

// VerificationStage re-submits stage-1 readings to the verification model.
// A "verification failed" verdict is content and flows downstream; a hard
// call failure after retries aborts the pipeline.
type VerificationStage struct {
	Verifier    llm.Verifier
	Retry       retry.Policy
	Concurrency int
	Log         *slog.Logger
}

func NewVerificationStage(verifier llm.Verifier, policy retry.Policy, concurrency int, logger *slog.Logger) *VerificationStage {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &VerificationStage{Verifier: verifier, Retry: policy, Concurrency: concurrency, Log: logger}
}

// SkippedInfo returns the stage-2 record for an upload that opted out: no
// model call, Skipped set.
func SkippedInfo() *entity.Stage2Info {
	return &entity.Stage2Info{Skipped: true}
}

// Verify runs the verification pass over each chunk's readings (a single
// pseudo-chunk for unchunked documents) with bounded concurrency. Corrected
// data replaces the chunk's readings; correction descriptions accumulate in
// order of chunk index.
func (s *VerificationStage) Verify(ctx context.Context, chunks []ChunkReadings, chunked bool) ([]ChunkReadings, *entity.Stage2Info, []string, error) {
	start := time.Now()
	verdicts := make([]llm.VerificationResult, len(chunks))
	errs := make([]error, len(chunks))

	sem := make(chan struct{}, s.Concurrency)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = s.Retry.Do(ctx, func(ctx context.Context) error {
				var callErr error
				verdicts[i], callErr = s.Verifier.VerifyBiomarkers(ctx, llm.VerificationRequest{
					Readings:  chunks[i].Readings,
					PageRange: chunks[i].PageRange,
				})
				return callErr
			})
		}(i)
	}
	wg.Wait()

	out := make([]ChunkReadings, len(chunks))
	var corrections []string
	passed, failed := 0, 0
	for i := range chunks {
		if errs[i] != nil {
			s.Log.Error("pipeline.verify.chunk_failed", "pages", chunks[i].PageRange, "error", errs[i])
			return nil, nil, nil, fmt.Errorf("%w: %v", common.ErrVerification, errs[i])
		}
		out[i] = chunks[i]
		v := verdicts[i]
		if len(v.CorrectedData) > 0 {
			out[i].Readings = v.CorrectedData
		}
		corrections = append(corrections, v.Corrections...)
		if v.Passed {
			passed++
		} else {
			failed++
		}
	}

	info := &entity.Stage2Info{
		Model:              s.Verifier.ModelName(),
		ReasoningEffort:    s.Verifier.EffortLevel(),
		DurationMs:         time.Since(start).Milliseconds(),
		VerificationPassed: failed == 0,
		CorrectionsCount:   len(corrections),
	}
	if chunked {
		info.PagesPassed = &passed
		info.PagesFailed = &failed
	}
	s.Log.Info("pipeline.verify.ok",
		"passed", info.VerificationPassed,
		"corrections", info.CorrectionsCount,
		"chunks_passed", passed, "chunks_failed", failed,
		"duration_ms", info.DurationMs,
	)
	return out, info, corrections, nil
}
