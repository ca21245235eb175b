package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// MockJobStore is an in-memory JobStore implementation for testing
type MockJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.IndexingJob

	// FailWith forces every call to return this error when set
	FailWith error
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[string]*domain.IndexingJob)}
}

func (m *MockJobStore) Save(ctx context.Context, job *domain.IndexingJob) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.IndexingJob, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobStore) List(ctx context.Context) ([]*domain.IndexingJob, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.IndexingJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockJobStore) FindActiveByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		if job.FileID == fileID && !job.IsTerminal() {
			cp := *job
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobStore) FindLatestByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.IndexingJob
	for _, job := range m.jobs {
		if job.FileID != fileID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockJobStore) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	purged := 0
	for id, job := range m.jobs {
		if job.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			purged++
		}
	}
	return purged, nil
}

// Helper methods for testing

func (m *MockJobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}
