package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/async"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

type createUploadResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// handleCreateUpload accepts a multipart form with the document under "file"
// plus "gender" and optional "skip_verification", records the upload as
// pending and hands it to the queue. Processing is asynchronous; poll
// GET /v1/uploads/{id} for progress.
func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("document exceeds %d bytes or malformed form", constants.MaxUploadBytes))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
		return
	}

	gender, ok := constants.ParseGender(r.FormValue("gender"))
	if !ok {
		s.logger.Warn("unrecognized gender on upload", "gender", r.FormValue("gender"))
	}
	skipVerification := r.FormValue("skip_verification") == "true"

	document, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read document")
		return
	}

	upload := &entity.LabUpload{
		ID:               uuid.New(),
		Status:           string(constants.UploadStatusPending),
		SkipVerification: skipVerification,
		Gender:           string(gender),
		Filename:         header.Filename,
		PDFSizeBytes:     int64(len(document)),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.uploads.Create(r.Context(), upload); err != nil {
		s.logger.Error("upload create failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "could not record upload")
		return
	}

	if err := s.queue.Enqueue(r.Context(), async.Job{
		UploadID:    upload.ID,
		Document:    document,
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("enqueue failed", "upload_id", upload.ID, "err", err)
		s.writeError(w, http.StatusServiceUnavailable, "pipeline unavailable")
		return
	}

	s.writeJSON(w, http.StatusAccepted, createUploadResponse{ID: upload.ID, Status: upload.Status})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uploadID(w, r)
	if !ok {
		return
	}
	upload, err := s.uploads.GetByID(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		s.logger.Error("upload fetch failed", "upload_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, "could not load upload")
		return
	}
	s.writeJSON(w, http.StatusOK, upload)
}

// handleGetUploadDebug returns the per-stage telemetry recorded by the
// pipeline, or 404 until a run has written any.
func (s *Server) handleGetUploadDebug(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uploadID(w, r)
	if !ok {
		return
	}
	upload, err := s.uploads.GetByID(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		s.logger.Error("upload fetch failed", "upload_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, "could not load upload")
		return
	}
	if len(upload.DebugInfo) == 0 {
		s.writeError(w, http.StatusNotFound, "no debug info recorded yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(upload.DebugInfo)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uploadID(w, r)
	if !ok {
		return
	}
	err := s.uploads.Delete(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		s.logger.Error("upload delete failed", "upload_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, "could not delete upload")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uploadID(w, r)
	if !ok {
		return
	}
	if s.export == nil {
		s.writeError(w, http.StatusNotImplemented, "export not configured")
		return
	}
	data, err := s.export.ExportResultsXLSX(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		s.logger.Error("export failed", "upload_id", id, "err", err)
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "biomarkers-"+id.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) uploadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
