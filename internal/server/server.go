package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/labs-tracker/internal/async"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/export"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
)

// Server exposes the upload pipeline and the biomarker catalog over HTTP.
type Server struct {
	uploads repository.LabUploadRepository
	queue   async.Queue
	catalog *catalog.Catalog
	export  *export.Service
	metrics http.Handler
	logger  *slog.Logger
}

func New(uploads repository.LabUploadRepository, queue async.Queue, cat *catalog.Catalog, exp *export.Service, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		uploads: uploads,
		queue:   queue,
		catalog: cat,
		export:  exp,
		metrics: metricsHandler,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/uploads", s.handleCreateUpload)
		r.Get("/uploads/{id}", s.handleGetUpload)
		r.Get("/uploads/{id}/debug", s.handleGetUploadDebug)
		r.Get("/uploads/{id}/export.xlsx", s.handleExportUpload)
		r.Delete("/uploads/{id}", s.handleDeleteUpload)

		r.Get("/standards", s.handleListStandards)
		r.Get("/standards/search", s.handleSearchStandards)
		r.Get("/standards/categories", s.handleListCategories)
	})
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
