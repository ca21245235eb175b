package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// MockObjectStore is an in-memory ObjectStore implementation for testing
type MockObjectStore struct {
	mu      sync.RWMutex
	files   map[string]*domain.StoredFile
	buffers map[string][]byte

	// FailWith forces every call to return this error when set
	FailWith error
}

// NewMockObjectStore creates a new MockObjectStore
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		files:   make(map[string]*domain.StoredFile),
		buffers: make(map[string][]byte),
	}
}

func (m *MockObjectStore) Upload(ctx context.Context, data []byte, upload domain.FileUpload) (*domain.StoredFile, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	f := &domain.StoredFile{
		ID:         id,
		Name:       upload.Name,
		MimeType:   upload.MimeType,
		Size:       int64(len(data)),
		StorageKey: "mock/" + id,
		Metadata:   upload.Metadata,
		UploadedAt: time.Now(),
	}
	m.files[id] = f
	m.buffers[id] = append([]byte(nil), data...)
	return cloneFile(f), nil
}

func (m *MockObjectStore) Get(ctx context.Context, id string) (*domain.StoredFile, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneFile(f), nil
}

func (m *MockObjectStore) UpdateMetadata(ctx context.Context, id string, patch domain.FileMetadataPatch) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.IndexStatus != nil {
		f.IndexStatus = *patch.IndexStatus
	}
	if patch.IndexKey != nil {
		f.IndexKey = *patch.IndexKey
	}
	if patch.MetadataKey != nil {
		f.MetadataKey = *patch.MetadataKey
	}
	if patch.NumChunks != nil {
		f.NumChunks = *patch.NumChunks
	}
	if patch.NumVectors != nil {
		f.NumVectors = *patch.NumVectors
	}
	if patch.IndexedAt != nil {
		f.IndexedAt = patch.IndexedAt
	}
	if patch.IndexError != nil {
		f.IndexError = *patch.IndexError
	}
	return nil
}

func (m *MockObjectStore) Delete(ctx context.Context, id string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.files, id)
	delete(m.buffers, id)
	return nil
}

func (m *MockObjectStore) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[id]; !ok {
		return "", domain.ErrNotFound
	}
	return fmt.Sprintf("mock://download/%s?ttl=%d", id, int(domain.ClampDownloadTTL(ttl).Seconds())), nil
}

func (m *MockObjectStore) DownloadBuffer(ctx context.Context, id string) ([]byte, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.buffers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Helper methods for testing

// Put seeds a file record (and optional buffer) directly
func (m *MockObjectStore) Put(f *domain.StoredFile, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.ID] = cloneFile(f)
	if data != nil {
		m.buffers[f.ID] = append([]byte(nil), data...)
	}
}

func (m *MockObjectStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func cloneFile(f *domain.StoredFile) *domain.StoredFile {
	cp := *f
	return &cp
}
