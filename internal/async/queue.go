package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job carries one upload through the pipeline. Document bytes ride along so
// workers never re-read storage.
type Job struct {
	UploadID    uuid.UUID
	Document    []byte
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
