package mcp

import (
	"context"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// mockContentService is a mock implementation of driving.ContentService.
type mockContentService struct {
	content    *domain.FileContent
	results    []domain.SearchResult
	grouped    map[string][]domain.SearchResult
	indexStats *domain.FileIndexStats
	stats      domain.ContentStats
	err        error
}

func (m *mockContentService) IndexContent(_ context.Context, _ string, _ []byte, _, _ string) (*domain.FileContent, error) {
	return m.content, m.err
}

func (m *mockContentService) Get(_ context.Context, _ string) (*domain.FileContent, error) {
	if m.content == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.content, m.err
}

func (m *mockContentService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockContentService) SearchWithinFile(_ context.Context, _, _ string, _ int) ([]domain.SearchResult, error) {
	return m.results, m.err
}

func (m *mockContentService) SearchAllFiles(_ context.Context, _ string, _ int) (map[string][]domain.SearchResult, error) {
	return m.grouped, m.err
}

func (m *mockContentService) IndexStats(_ context.Context, _ string) (*domain.FileIndexStats, error) {
	return m.indexStats, m.err
}

func (m *mockContentService) Stats(_ context.Context) (domain.ContentStats, error) {
	return m.stats, m.err
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	job       *domain.IndexingJob
	jobs      []*domain.IndexingJob
	cancelled bool
	err       error
}

func (m *mockIndexingService) StartIndexing(_ context.Context, _, _ string, _ bool) (*domain.IndexingJob, error) {
	return m.job, m.err
}

func (m *mockIndexingService) CompleteFromCallback(_ context.Context, _ domain.IndexCallback) error {
	return m.err
}

func (m *mockIndexingService) CancelJob(_ context.Context, _ string) (bool, error) {
	return m.cancelled, m.err
}

func (m *mockIndexingService) GetJob(_ context.Context, _ string) (*domain.IndexingJob, error) {
	return m.job, m.err
}

func (m *mockIndexingService) ListJobs(_ context.Context) ([]*domain.IndexingJob, error) {
	return m.jobs, m.err
}

// mockVectorSearchService is a mock implementation of driving.VectorSearchService.
type mockVectorSearchService struct {
	results []domain.SearchResult
	lastReq domain.VectorSearchRequest
	err     error
}

func (m *mockVectorSearchService) Search(_ context.Context, req domain.VectorSearchRequest) ([]domain.SearchResult, error) {
	m.lastReq = req
	return m.results, m.err
}

// mockFileService is a mock implementation of driving.FileService.
type mockFileService struct {
	file *domain.StoredFile
	url  string
	err  error
}

func (m *mockFileService) Upload(_ context.Context, _ []byte, _ domain.FileUpload) (*domain.StoredFile, error) {
	return m.file, m.err
}

func (m *mockFileService) Get(_ context.Context, _ string) (*domain.StoredFile, error) {
	return m.file, m.err
}

func (m *mockFileService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockFileService) DownloadURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return m.url, m.err
}

func validPorts() *Ports {
	return &Ports{
		Content:  &mockContentService{},
		Indexing: &mockIndexingService{},
		Search:   &mockVectorSearchService{},
	}
}
