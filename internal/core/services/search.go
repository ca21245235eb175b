package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// vectorSearchService fronts a file's completed deep index. Until a real
// vector backend is attached it answers from the extracted chunk content,
// but the contract callers see is the index's: a file without a completed
// index is not searchable here, even when keyword content exists.
type vectorSearchService struct {
	content driving.ContentService
	objects driven.ObjectStore
	logger  *slog.Logger
}

var _ driving.VectorSearchService = (*vectorSearchService)(nil)

// VectorSearchServiceConfig holds dependencies for NewVectorSearchService
type VectorSearchServiceConfig struct {
	Content driving.ContentService
	Objects driven.ObjectStore
	Logger  *slog.Logger
}

// NewVectorSearchService creates a VectorSearchService
func NewVectorSearchService(cfg VectorSearchServiceConfig) driving.VectorSearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &vectorSearchService{
		content: cfg.Content,
		objects: cfg.Objects,
		logger:  logger,
	}
}

// Search returns up to K results for a single file, relevance descending,
// filtered to MinScore.
func (s *vectorSearchService) Search(ctx context.Context, req domain.VectorSearchRequest) ([]domain.SearchResult, error) {
	if req.FileID == "" {
		return nil, fmt.Errorf("%w: file id is required", domain.ErrInvalidInput)
	}
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	k := req.K
	if k <= 0 {
		k = domain.DefaultSearchK
	}
	if k > domain.MaxSearchK {
		k = domain.MaxSearchK
	}
	minScore := req.MinScore
	if minScore < 0 {
		minScore = 0
	}

	file, err := s.objects.Get(ctx, req.FileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("file %s: %w", req.FileID, domain.ErrNotFound)
		}
		return nil, &domain.UpstreamError{Op: "object store get", Err: err}
	}
	if file.IndexStatus != domain.IndexStatusCompleted {
		return nil, fmt.Errorf("file %s has no completed index: %w", req.FileID, domain.ErrNotIndexed)
	}

	results, err := s.content.SearchWithinFile(ctx, req.FileID, req.Query, k)
	if err != nil {
		return nil, err
	}

	if minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	s.logger.Debug("vector search served",
		"file_id", req.FileID, "k", k, "results", len(results))
	return results, nil
}
