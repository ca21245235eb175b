package driven

import (
	"context"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// JobStore persists indexing job records. Terminal jobs are retained for
// status queries; callers may prune explicitly.
type JobStore interface {
	// Save creates or updates a job record
	Save(ctx context.Context, job *domain.IndexingJob) error

	// Get retrieves a job by ID, or domain.ErrNotFound
	Get(ctx context.Context, id string) (*domain.IndexingJob, error)

	// List returns all jobs ordered by CreatedAt descending
	List(ctx context.Context) ([]*domain.IndexingJob, error)

	// FindActiveByFile returns the non-terminal job for a file, if any,
	// or domain.ErrNotFound
	FindActiveByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error)

	// FindLatestByFile returns the newest job for a file regardless of
	// status, or domain.ErrNotFound
	FindLatestByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error)

	// Purge removes terminal jobs older than the given age and returns the
	// number removed
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
}
