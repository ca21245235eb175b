package driven

import (
	"context"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// ObjectStore is the file storage capability consumed by the core.
// Implementations may be backed by S3-compatible stores or a database;
// failures surface as *domain.UpstreamError.
type ObjectStore interface {
	// Upload stores a file and returns its record
	Upload(ctx context.Context, data []byte, upload domain.FileUpload) (*domain.StoredFile, error)

	// Get retrieves a file record by ID
	Get(ctx context.Context, id string) (*domain.StoredFile, error)

	// UpdateMetadata applies a partial metadata update to a file
	UpdateMetadata(ctx context.Context, id string, patch domain.FileMetadataPatch) error

	// Delete removes a file and its content
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a presigned URL for the file, valid for at most
	// domain.MaxDownloadURLTTL
	DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error)

	// DownloadBuffer returns the raw file bytes
	DownloadBuffer(ctx context.Context, id string) ([]byte, error)
}
