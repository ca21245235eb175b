package mocks

import (
	"context"
	"sync"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// MockContentSnapshotStore is an in-memory ContentSnapshotStore for testing
type MockContentSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.FileContent

	// FailWith forces every call to return this error when set
	FailWith error

	// SaveCalls counts Save invocations
	SaveCalls int
}

// NewMockContentSnapshotStore creates a new MockContentSnapshotStore
func NewMockContentSnapshotStore() *MockContentSnapshotStore {
	return &MockContentSnapshotStore{snapshots: make(map[string]*domain.FileContent)}
}

func (m *MockContentSnapshotStore) Save(ctx context.Context, fc *domain.FileContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.FailWith != nil {
		return m.FailWith
	}
	cp := *fc
	cp.Chunks = append([]domain.Chunk(nil), fc.Chunks...)
	m.snapshots[fc.FileID] = &cp
	return nil
}

func (m *MockContentSnapshotStore) Load(ctx context.Context, fileID string) (*domain.FileContent, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	fc, ok := m.snapshots[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *fc
	cp.Chunks = append([]domain.Chunk(nil), fc.Chunks...)
	return &cp, nil
}

func (m *MockContentSnapshotStore) ListFileIDs(ctx context.Context) ([]string, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockContentSnapshotStore) Delete(ctx context.Context, fileID string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, fileID)
	return nil
}

// Helper methods for testing

func (m *MockContentSnapshotStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
