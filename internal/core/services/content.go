package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// reloadConcurrency bounds parallel snapshot loads during startup.
const reloadConcurrency = 8

// ContentStore holds extracted chunk content in memory for keyword
// search, mirroring every write to a durable snapshot store. Reads are
// served from memory only; the snapshot store is read once at startup
// via Reload.
type ContentStore struct {
	mu    sync.RWMutex
	files map[string]*domain.FileContent

	extractor *Extractor
	snapshots driven.ContentSnapshotStore
	logger    *slog.Logger
}

var _ driving.ContentService = (*ContentStore)(nil)

// ContentStoreConfig holds dependencies for NewContentStore
type ContentStoreConfig struct {
	Extractor *Extractor
	Snapshots driven.ContentSnapshotStore
	Logger    *slog.Logger
}

// NewContentStore creates a ContentStore
func NewContentStore(cfg ContentStoreConfig) *ContentStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentStore{
		files:     make(map[string]*domain.FileContent),
		extractor: cfg.Extractor,
		snapshots: cfg.Snapshots,
		logger:    logger,
	}
}

// Reload restores in-memory state from the snapshot store. Called once
// at startup before the store serves requests.
func (s *ContentStore) Reload(ctx context.Context) error {
	ids, err := s.snapshots.ListFileIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	var mu sync.Mutex
	loaded := make(map[string]*domain.FileContent, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reloadConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			fc, err := s.snapshots.Load(gctx, id)
			if err != nil {
				return fmt.Errorf("loading snapshot for %s: %w", id, err)
			}
			mu.Lock()
			loaded[id] = fc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.files = loaded
	s.mu.Unlock()

	s.logger.Info("content store reloaded", "files", len(loaded))
	return nil
}

// IndexContent extracts and chunks a document, replacing any existing
// content for the file. The snapshot is written before the in-memory
// swap, so a snapshot failure leaves the previous content visible.
func (s *ContentStore) IndexContent(ctx context.Context, fileID string, data []byte, mimeType, password string) (*domain.FileContent, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", domain.ErrInvalidInput)
	}

	chunks, hash, err := s.extractor.Extract(ctx, fileID, data, mimeType, password)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	existing := s.files[fileID]
	s.mu.RUnlock()
	if existing != nil && existing.ContentHash == hash {
		s.logger.Debug("content unchanged, skipping re-index", "file_id", fileID)
		return existing, nil
	}

	fc := &domain.FileContent{
		FileID:      fileID,
		Chunks:      chunks,
		TotalChunks: len(chunks),
		ContentHash: hash,
		ExtractedAt: time.Now().UTC(),
	}

	if err := s.snapshots.Save(ctx, fc); err != nil {
		return nil, &domain.UpstreamError{Op: "content snapshot save", Err: err}
	}

	s.mu.Lock()
	s.files[fileID] = fc
	s.mu.Unlock()

	s.logger.Info("content indexed",
		"file_id", fileID,
		"chunks", len(chunks),
		"replaced", existing != nil)
	return fc, nil
}

// Get retrieves the content record for a file
func (s *ContentStore) Get(ctx context.Context, fileID string) (*domain.FileContent, error) {
	s.mu.RLock()
	fc, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("content for file %s: %w", fileID, domain.ErrNotFound)
	}
	return fc, nil
}

// Remove deletes a file's content and snapshot. Removing a file that
// was never indexed is a no-op.
func (s *ContentStore) Remove(ctx context.Context, fileID string) error {
	s.mu.Lock()
	_, existed := s.files[fileID]
	delete(s.files, fileID)
	s.mu.Unlock()

	if err := s.snapshots.Delete(ctx, fileID); err != nil {
		return &domain.UpstreamError{Op: "content snapshot delete", Err: err}
	}
	if existed {
		s.logger.Info("content removed", "file_id", fileID)
	}
	return nil
}

// SearchWithinFile ranks a single file's chunks against the query.
func (s *ContentStore) SearchWithinFile(ctx context.Context, fileID, query string, limit int) ([]domain.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = domain.DefaultCrossFileLimit
	}

	s.mu.RLock()
	fc, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, domain.ErrNotIndexed)
	}

	results := rankChunks(query, fc.Chunks)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchAllFiles searches every indexed file, keeping the best
// domain.PerFileSearchCap hits per file so one large document cannot
// crowd out the rest.
func (s *ContentStore) SearchAllFiles(ctx context.Context, query string, limit int) (map[string][]domain.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = domain.DefaultCrossFileLimit
	}
	if limit > domain.MaxCrossFileLimit {
		limit = domain.MaxCrossFileLimit
	}

	s.mu.RLock()
	snapshot := make([]*domain.FileContent, 0, len(s.files))
	for _, fc := range s.files {
		snapshot = append(snapshot, fc)
	}
	s.mu.RUnlock()

	// Deterministic file visit order so equal-score results tie-break
	// identically across calls.
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].FileID < snapshot[j].FileID })

	var all []domain.SearchResult
	for _, fc := range snapshot {
		hits := rankChunks(query, fc.Chunks)
		if len(hits) > domain.PerFileSearchCap {
			hits = hits[:domain.PerFileSearchCap]
		}
		all = append(all, hits...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > limit {
		all = all[:limit]
	}

	grouped := make(map[string][]domain.SearchResult)
	for _, r := range all {
		grouped[r.FileID] = append(grouped[r.FileID], r)
	}
	return grouped, nil
}

// IndexStats reports whether extracted content exists for the file.
// A file without content is not an error here; callers distinguish
// "not indexed" from "missing" at the file layer.
func (s *ContentStore) IndexStats(ctx context.Context, fileID string) (*domain.FileIndexStats, error) {
	s.mu.RLock()
	fc, ok := s.files[fileID]
	s.mu.RUnlock()

	stats := &domain.FileIndexStats{FileID: fileID}
	if !ok {
		return stats, nil
	}
	extractedAt := fc.ExtractedAt
	stats.IsIndexed = true
	stats.TotalChunks = fc.TotalChunks
	stats.TotalCharacters = fc.TotalCharacters()
	stats.ExtractedAt = &extractedAt
	return stats, nil
}

// Stats summarises the store
func (s *ContentStore) Stats(ctx context.Context) (domain.ContentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.ContentStats{FileCount: len(s.files)}
	for _, fc := range s.files {
		stats.TotalChunks += fc.TotalChunks
	}
	if stats.FileCount > 0 {
		stats.AvgChunksPerFile = float64(stats.TotalChunks) / float64(stats.FileCount)
	}
	return stats, nil
}

// rankChunks scores chunks against the query and returns matches in
// relevance order, ties broken by ascending chunk order.
func rankChunks(query string, chunks []domain.Chunk) []domain.SearchResult {
	keywords := queryKeywords(query)
	var results []domain.SearchResult
	for _, chunk := range chunks {
		score := scoreChunk(query, keywords, chunk.Content)
		if score <= 0 {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:    chunk.ID,
			FileID:     chunk.FileID,
			Content:    chunk.Content,
			ChunkOrder: chunk.ChunkOrder,
			Score:      score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkOrder < results[j].ChunkOrder
	})
	return results
}
