package driven

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// ContentSnapshotStore mirrors in-memory file content to durable storage so
// extracted chunks survive process restarts without re-extraction.
// Save must replace any prior snapshot for the file atomically.
type ContentSnapshotStore interface {
	// Save persists the full content record for a file
	Save(ctx context.Context, fc *domain.FileContent) error

	// Load retrieves the snapshot for a file, or domain.ErrNotFound
	Load(ctx context.Context, fileID string) (*domain.FileContent, error)

	// ListFileIDs returns the IDs of all snapshotted files
	ListFileIDs(ctx context.Context) ([]string, error)

	// Delete removes the snapshot for a file
	Delete(ctx context.Context, fileID string) error
}
