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
	"github.com/joseph-ayodele/labs-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/labs-tracker/internal/retry"
)

// ChunkReadings is the stage-1 output for one chunk, kept indexed so merge
// order is deterministic regardless of completion order.
type ChunkReadings struct {
	Index      int
	FirstPage  int
	PageRange  string
	Readings   []llm.Reading
	DurationMs int64
}

// ExtractionStage submits document bytes (or page chunks) to the vision
// extraction model. A model-call or parse failure is a stage failure and
// propagates as an extraction error; per-chunk failures are retried per the
// policy before the run is failed.
type ExtractionStage struct {
	Extractor   llm.BiomarkerExtractor
	Retry       retry.Policy
	Concurrency int
	Log         *slog.Logger
}

func NewExtractionStage(extractor llm.BiomarkerExtractor, policy retry.Policy, concurrency int, logger *slog.Logger) *ExtractionStage {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ExtractionStage{Extractor: extractor, Retry: policy, Concurrency: concurrency, Log: logger}
}

// ExtractDocument runs the whole document through the model in one call.
func (s *ExtractionStage) ExtractDocument(ctx context.Context, doc []byte, hint string) (ChunkReadings, *entity.Stage1Info, error) {
	start := time.Now()
	var result llm.ExtractionResult
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.Extractor.ExtractBiomarkers(ctx, llm.ExtractionRequest{
			Document: doc,
			MimeType: "application/pdf",
			Hint:     hint,
		})
		return callErr
	})
	duration := time.Since(start)
	if err != nil {
		s.Log.Error("pipeline.extract.failed", "error", err, "duration_ms", duration.Milliseconds())
		return ChunkReadings{}, nil, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}

	info := &entity.Stage1Info{
		Model:               s.Extractor.ModelName(),
		ThinkingLevel:       s.Extractor.EffortLevel(),
		DurationMs:          duration.Milliseconds(),
		BiomarkersExtracted: len(result.Readings),
	}
	s.Log.Info("pipeline.extract.ok", "readings", len(result.Readings), "duration_ms", info.DurationMs)
	return ChunkReadings{Readings: result.Readings, DurationMs: duration.Milliseconds()}, info, nil
}

// ExtractChunks processes page chunks with bounded concurrency. Results are
// collected by chunk index, never by completion order. Any chunk that still
// fails after retries fails the whole stage.
func (s *ExtractionStage) ExtractChunks(ctx context.Context, chunks []pdfdoc.Chunk, hint string) ([]ChunkReadings, *entity.Stage1Info, error) {
	start := time.Now()
	results := make([]ChunkReadings, len(chunks))
	errs := make([]error, len(chunks))

	sem := make(chan struct{}, s.Concurrency)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = s.extractChunk(ctx, chunks[i], hint)
		}(i)
	}
	wg.Wait()

	total := 0
	var pageDurations int64
	for i := range results {
		if errs[i] != nil {
			s.Log.Error("pipeline.extract.chunk_failed", "pages", chunks[i].Pages, "error", errs[i])
			return nil, nil, fmt.Errorf("%w: pages %s: %v", common.ErrExtraction, chunks[i].Pages, errs[i])
		}
		total += len(results[i].Readings)
		pageDurations += results[i].DurationMs
	}

	pages := len(chunks)
	avg := pageDurations / int64(pages)
	info := &entity.Stage1Info{
		Model:               s.Extractor.ModelName(),
		ThinkingLevel:       s.Extractor.EffortLevel(),
		DurationMs:          time.Since(start).Milliseconds(),
		BiomarkersExtracted: total,
		PagesProcessed:      &pages,
		AvgPageDurationMs:   &avg,
	}
	s.Log.Info("pipeline.extract.ok",
		"chunks", pages, "readings", total,
		"duration_ms", info.DurationMs, "avg_page_ms", avg,
	)
	return results, info, nil
}

func (s *ExtractionStage) extractChunk(ctx context.Context, chunk pdfdoc.Chunk, hint string) (ChunkReadings, error) {
	start := time.Now()
	var result llm.ExtractionResult
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.Extractor.ExtractBiomarkers(ctx, llm.ExtractionRequest{
			Document:  chunk.Data,
			MimeType:  "application/pdf",
			PageRange: chunk.Pages,
			Hint:      hint,
		})
		return callErr
	})
	if err != nil {
		return ChunkReadings{}, err
	}
	return ChunkReadings{
		Index:      chunk.Index,
		FirstPage:  chunk.FirstPage,
		PageRange:  chunk.Pages,
		Readings:   result.Readings,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
