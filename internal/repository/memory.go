package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// MemoryLabUploadRepository is an in-memory LabUploadRepository for the
// one-shot CLI and tests. Safe for concurrent use.
type MemoryLabUploadRepository struct {
	mu      sync.RWMutex
	uploads map[uuid.UUID]*entity.LabUpload
}

func NewMemoryLabUploadRepository() *MemoryLabUploadRepository {
	return &MemoryLabUploadRepository{uploads: make(map[uuid.UUID]*entity.LabUpload)}
}

func (r *MemoryLabUploadRepository) Create(_ context.Context, u *entity.LabUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.uploads[u.ID] = &cp
	return nil
}

func (r *MemoryLabUploadRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.LabUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryLabUploadRepository) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.uploads[id]
	return ok, nil
}

func (r *MemoryLabUploadRepository) SetStatus(_ context.Context, id uuid.UUID, status constants.UploadStatus, stage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Status = string(status)
	u.ProcessingStage = stage
	return nil
}

func (r *MemoryLabUploadRepository) MarkStarted(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return common.ErrNotFound
	}
	if u.StartedAt == nil {
		now := time.Now().UTC()
		u.StartedAt = &now
	}
	return nil
}

func (r *MemoryLabUploadRepository) Complete(_ context.Context, id uuid.UUID, p CompleteParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return common.ErrNotFound
	}
	now := time.Now().UTC()
	u.Status = string(constants.UploadStatusComplete)
	u.ProcessingStage = nil
	u.ExtractedData = append(json.RawMessage(nil), p.ExtractedData...)
	u.ExtractionConfidence = &p.ExtractionConfidence
	u.VerificationPassed = p.VerificationPassed
	u.Corrections = p.Corrections
	u.DebugInfo = append(json.RawMessage(nil), p.DebugInfo...)
	u.CompletedAt = &now
	return nil
}

func (r *MemoryLabUploadRepository) Fail(_ context.Context, id uuid.UUID, message string, debug json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return common.ErrNotFound
	}
	now := time.Now().UTC()
	u.Status = string(constants.UploadStatusError)
	u.ProcessingStage = nil
	u.ErrorMessage = &message
	u.DebugInfo = append(json.RawMessage(nil), debug...)
	u.CompletedAt = &now
	return nil
}

func (r *MemoryLabUploadRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.uploads, id)
	return nil
}
