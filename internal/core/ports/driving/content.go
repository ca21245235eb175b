package driving

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// ContentService manages extracted chunk content and keyword search
type ContentService interface {
	// IndexContent extracts and chunks a document, replacing any existing
	// content record for the file atomically
	IndexContent(ctx context.Context, fileID string, data []byte, mimeType, password string) (*domain.FileContent, error)

	// Get retrieves the content record for a file, or domain.ErrNotFound
	Get(ctx context.Context, fileID string) (*domain.FileContent, error)

	// Remove deletes the content record and its durable snapshot
	Remove(ctx context.Context, fileID string) error

	// SearchWithinFile ranks a file's chunks against the query, relevance
	// descending with ties broken by ascending chunk order. Returns
	// domain.ErrNotIndexed when the file has no content record.
	SearchWithinFile(ctx context.Context, fileID, query string, limit int) ([]domain.SearchResult, error)

	// SearchAllFiles searches every indexed file, keeping at most
	// domain.PerFileSearchCap hits per file before the global limit
	// (default domain.DefaultCrossFileLimit, hard cap
	// domain.MaxCrossFileLimit) is applied.
	SearchAllFiles(ctx context.Context, query string, limit int) (map[string][]domain.SearchResult, error)

	// IndexStats reports whether the file has extracted content
	IndexStats(ctx context.Context, fileID string) (*domain.FileIndexStats, error)

	// Stats summarises the store
	Stats(ctx context.Context) (domain.ContentStats, error)
}
