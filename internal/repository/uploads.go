package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// CompleteParams carries everything the orchestrator commits on success.
type CompleteParams struct {
	ExtractedData        json.RawMessage
	ExtractionConfidence float32
	VerificationPassed   *bool
	Corrections          []string
	DebugInfo            json.RawMessage
}

// LabUploadRepository persists lab uploads keyed by id. Status and
// processing stage are the primary mutable fields during a run.
type LabUploadRepository interface {
	Create(ctx context.Context, upload *entity.LabUpload) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.LabUpload, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.UploadStatus, processingStage *string) error
	MarkStarted(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, params CompleteParams) error
	Fail(ctx context.Context, id uuid.UUID, message string, debug json.RawMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type labUploadRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewLabUploadRepository(pool *pgxpool.Pool, log *slog.Logger) LabUploadRepository {
	if log == nil {
		log = slog.Default()
	}
	return &labUploadRepo{pool: pool, log: log}
}

func (r *labUploadRepo) Create(ctx context.Context, u *entity.LabUpload) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lab_upload (id, status, skip_verification, gender, filename, pdf_size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Status, u.SkipVerification, u.Gender, u.Filename, u.PDFSizeBytes, u.CreatedAt,
	)
	if err != nil {
		r.log.Error("lab_upload create failed", "upload_id", u.ID, "err", err)
		return err
	}
	r.log.Info("lab_upload created", "upload_id", u.ID, "status", u.Status)
	return nil
}

func (r *labUploadRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.LabUpload, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, status, processing_stage, skip_verification, gender, filename, pdf_size_bytes,
		       extracted_data, extraction_confidence, verification_passed, corrections,
		       error_message, debug_info, created_at, started_at, completed_at
		FROM lab_upload WHERE id = $1`, id)

	var u entity.LabUpload
	err := row.Scan(&u.ID, &u.Status, &u.ProcessingStage, &u.SkipVerification, &u.Gender,
		&u.Filename, &u.PDFSizeBytes, &u.ExtractedData, &u.ExtractionConfidence,
		&u.VerificationPassed, &u.Corrections, &u.ErrorMessage, &u.DebugInfo,
		&u.CreatedAt, &u.StartedAt, &u.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *labUploadRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM lab_upload WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *labUploadRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.UploadStatus, processingStage *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lab_upload SET status = $2, processing_stage = $3 WHERE id = $1`,
		id, string(status), processingStage)
	if err != nil {
		r.log.Error("lab_upload status update failed", "upload_id", id, "status", status, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Info("lab_upload status", "upload_id", id, "status", status)
	return nil
}

func (r *labUploadRepo) MarkStarted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE lab_upload SET started_at = $2 WHERE id = $1 AND started_at IS NULL`,
		id, time.Now().UTC())
	return err
}

func (r *labUploadRepo) Complete(ctx context.Context, id uuid.UUID, p CompleteParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_upload SET
			status = $2, processing_stage = NULL,
			extracted_data = $3, extraction_confidence = $4,
			verification_passed = $5, corrections = $6,
			debug_info = $7, completed_at = $8
		WHERE id = $1`,
		id, string(constants.UploadStatusComplete),
		p.ExtractedData, p.ExtractionConfidence,
		p.VerificationPassed, p.Corrections,
		p.DebugInfo, time.Now().UTC())
	if err != nil {
		r.log.Error("lab_upload complete failed", "upload_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Info("lab_upload finished (complete)", "upload_id", id)
	return nil
}

func (r *labUploadRepo) Fail(ctx context.Context, id uuid.UUID, message string, debug json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_upload SET
			status = $2, processing_stage = NULL, error_message = $3,
			debug_info = $4, completed_at = $5
		WHERE id = $1`,
		id, string(constants.UploadStatusError), message, debug, time.Now().UTC())
	if err != nil {
		r.log.Error("lab_upload fail update failed", "upload_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Warn("lab_upload finished (error)", "upload_id", id, "error", message)
	return nil
}

func (r *labUploadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lab_upload WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Info("lab_upload deleted", "upload_id", id)
	return nil
}
