package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/async"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/export"
	"github.com/joseph-ayodele/labs-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/labs-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/labs-tracker/internal/match"
	"github.com/joseph-ayodele/labs-tracker/internal/metrics"
	"github.com/joseph-ayodele/labs-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/labs-tracker/internal/pipeline"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
	"github.com/joseph-ayodele/labs-tracker/internal/retry"
	"github.com/joseph-ayodele/labs-tracker/internal/server"
	"github.com/joseph-ayodele/labs-tracker/internal/units"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("db pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout); err != nil {
		logger.Error("db health", "err", err)
		os.Exit(1)
	}
	logger.Info("db health ok")

	standards, err := catalog.LoadSQLite(ctx, cfg.Catalog.SQLitePath)
	if err != nil {
		logger.Error("catalog load", "path", cfg.Catalog.SQLitePath, "err", err)
		os.Exit(1)
	}
	cat := catalog.New(standards, logger)
	logger.Info("catalog loaded", "standards", cat.Len())

	uploads := repository.NewLabUploadRepository(pool, logger)
	policy := retry.Policy{
		Initial:    cfg.Pipeline.RetryBackoff,
		Max:        30 * time.Second,
		MaxRetries: cfg.Pipeline.MaxRetries,
	}

	extractor := gemini.NewClient(cfg.Extraction, logger)
	verifier := openai.NewClient(cfg.Verification, logger)

	recorder := metrics.NewPrometheusRecorder()
	orch := pipeline.NewOrchestrator(
		uploads,
		pdfdoc.PDFSplitter{},
		pipeline.NewExtractionStage(extractor, policy, cfg.Pipeline.PageConcurrency, logger),
		pipeline.NewVerificationStage(verifier, policy, cfg.Pipeline.PageConcurrency, logger),
		pipeline.NewMergeStage(pipeline.HighestConfidence{}, logger),
		match.NewStage(cat, units.NewConverter(logger), logger),
		recorder,
		cfg.Pipeline.ChunkPageThreshold,
		cfg.Pipeline.PagesPerChunk,
		logger,
	)

	queue := async.NewPipelineQueue(orch, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	exportSvc := export.NewService(uploads, logger)
	srv := server.New(uploads, queue, cat, exportSvc, recorder.Handler(), logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
