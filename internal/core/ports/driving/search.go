package driving

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// VectorSearchService is the façade over a file's completed index.
// K defaults to domain.DefaultSearchK and is capped at domain.MaxSearchK;
// results below MinScore are filtered out.
type VectorSearchService interface {
	// Search returns ranked results for a single file, or
	// domain.ErrNotIndexed when the file has no completed index
	Search(ctx context.Context, req domain.VectorSearchRequest) ([]domain.SearchResult, error)
}
