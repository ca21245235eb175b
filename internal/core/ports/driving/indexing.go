package driving

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// IndexingService tracks asynchronous indexing jobs and reconciles
// indexer callbacks
type IndexingService interface {
	// StartIndexing creates a job for the file and dispatches it to the
	// external indexer. If a non-terminal job already exists for the file
	// and forceRebuild is false, it fails with domain.ErrDuplicateJob.
	StartIndexing(ctx context.Context, fileID, fileName string, forceRebuild bool) (*domain.IndexingJob, error)

	// CompleteFromCallback applies a terminal callback to its job.
	// Idempotent: duplicate callbacks for terminal jobs are no-ops.
	CompleteFromCallback(ctx context.Context, cb domain.IndexCallback) error

	// CancelJob cancels a pending or processing job. Returns false when
	// the job is already terminal. Cancellation is local bookkeeping;
	// remote work is not interrupted.
	CancelJob(ctx context.Context, jobID string) (bool, error)

	// GetJob retrieves a job by ID, or domain.ErrNotFound
	GetJob(ctx context.Context, jobID string) (*domain.IndexingJob, error)

	// ListJobs returns all jobs, newest first
	ListJobs(ctx context.Context) ([]*domain.IndexingJob, error)
}
