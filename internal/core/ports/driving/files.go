package driving

import (
	"context"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// FileService manages uploaded files and their extraction pipeline
type FileService interface {
	// Upload stores a file and synchronously extracts its content for
	// keyword search. Extraction failures are recorded on file metadata,
	// not returned: the upload itself still succeeds.
	Upload(ctx context.Context, data []byte, upload domain.FileUpload) (*domain.StoredFile, error)

	// Get retrieves a file record, or domain.ErrNotFound
	Get(ctx context.Context, id string) (*domain.StoredFile, error)

	// Delete removes the file, its content record, and its snapshot
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a presigned URL; ttl is clamped to
	// domain.MaxDownloadURLTTL
	DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error)
}
