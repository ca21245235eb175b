package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// MockIndexDispatcher records dispatched requests for testing
type MockIndexDispatcher struct {
	mu       sync.Mutex
	requests []domain.IndexRequest

	// FailWith forces TriggerIndexing to return this error when set
	FailWith error
}

// NewMockIndexDispatcher creates a new MockIndexDispatcher
func NewMockIndexDispatcher() *MockIndexDispatcher {
	return &MockIndexDispatcher{}
}

func (m *MockIndexDispatcher) TriggerIndexing(ctx context.Context, req domain.IndexRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.requests = append(m.requests, req)
	return nil
}

// Requests returns a copy of all dispatched requests
func (m *MockIndexDispatcher) Requests() []domain.IndexRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.IndexRequest(nil), m.requests...)
}

// MockIndexQueue feeds requests to the worker in tests
type MockIndexQueue struct {
	mu      sync.Mutex
	pending []*domain.IndexRequest
	acked   []string
}

// NewMockIndexQueue creates a new MockIndexQueue
func NewMockIndexQueue() *MockIndexQueue {
	return &MockIndexQueue{}
}

// Push enqueues a request for dequeue
func (m *MockIndexQueue) Push(req *domain.IndexRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, req)
}

func (m *MockIndexQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IndexRequest, error) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		// Brief pause so caller loops do not spin hot against an empty queue
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
	req := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	return req, nil
}

func (m *MockIndexQueue) Ack(ctx context.Context, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msgID)
	return nil
}

func (m *MockIndexQueue) Ping(ctx context.Context) error {
	return nil
}

// Acked returns the acknowledged message IDs
func (m *MockIndexQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}
