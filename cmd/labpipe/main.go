package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/labs-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/labs-tracker/internal/match"
	"github.com/joseph-ayodele/labs-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/labs-tracker/internal/pipeline"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
	"github.com/joseph-ayodele/labs-tracker/internal/retry"
	"github.com/joseph-ayodele/labs-tracker/internal/units"
)

// labpipe runs the extraction pipeline once against a local PDF, without a
// database or HTTP server, and prints the resulting upload as JSON. Useful
// for catalog tuning and prompt iteration.
func main() {
	var (
		filePath    = flag.String("file", "", "path to the lab report PDF (required)")
		catalogPath = flag.String("catalog", "", "path to a YAML biomarker catalog (required)")
		gender      = flag.String("gender", "", "patient gender for reference ranges (male|female)")
		skipVerify  = flag.Bool("skip-verify", false, "skip the verification pass")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *filePath == "" || *catalogPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*filePath, *catalogPath, *gender, *skipVerify, logger); err != nil {
		fmt.Fprintln(os.Stderr, "labpipe:", err)
		os.Exit(1)
	}
}

func run(filePath, catalogPath, gender string, skipVerify bool, logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if cfg.Extraction.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if !skipVerify && cfg.Verification.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required (or pass -skip-verify)")
	}

	doc, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	standards, err := catalog.LoadYAML(catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	cat := catalog.New(standards, logger)

	parsedGender, ok := constants.ParseGender(gender)
	if !ok && gender != "" {
		logger.Warn("unrecognized gender, reference ranges will be unavailable", "gender", gender)
	}

	policy := retry.Policy{
		Initial:    cfg.Pipeline.RetryBackoff,
		Max:        30 * time.Second,
		MaxRetries: cfg.Pipeline.MaxRetries,
	}
	uploads := repository.NewMemoryLabUploadRepository()
	orch := pipeline.NewOrchestrator(
		uploads,
		pdfdoc.PDFSplitter{},
		pipeline.NewExtractionStage(gemini.NewClient(cfg.Extraction, logger), policy, cfg.Pipeline.PageConcurrency, logger),
		pipeline.NewVerificationStage(openai.NewClient(cfg.Verification, logger), policy, cfg.Pipeline.PageConcurrency, logger),
		pipeline.NewMergeStage(pipeline.HighestConfidence{}, logger),
		match.NewStage(cat, units.NewConverter(logger), logger),
		nil,
		cfg.Pipeline.ChunkPageThreshold,
		cfg.Pipeline.PagesPerChunk,
		logger,
	)

	upload := &entity.LabUpload{
		ID:               uuid.New(),
		Status:           string(constants.UploadStatusPending),
		SkipVerification: skipVerify,
		Gender:           string(parsedGender),
		Filename:         filePath,
		PDFSizeBytes:     int64(len(doc)),
		CreatedAt:        time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ProcessTimeout)
	defer cancel()

	if err := uploads.Create(ctx, upload); err != nil {
		return err
	}
	if _, err := orch.Process(ctx, upload.ID, doc); err != nil {
		logger.Error("pipeline failed", "err", err)
	}

	final, err := uploads.GetByID(ctx, upload.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(final)
}
