package mocks

import (
	"context"
	"sync"
)

// NotifierEvent is one recorded Emit call
type NotifierEvent struct {
	Channel string
	Event   string
	Payload any
}

// MockNotifier records emitted events for testing
type MockNotifier struct {
	mu     sync.Mutex
	events []NotifierEvent

	// FailWith forces Emit to return this error when set
	FailWith error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Emit(ctx context.Context, channel, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.events = append(m.events, NotifierEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

// Events returns a copy of all recorded events
func (m *MockNotifier) Events() []NotifierEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotifierEvent(nil), m.events...)
}

// EventNames returns the recorded event names in order
func (m *MockNotifier) EventNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.events))
	for i, e := range m.events {
		names[i] = e.Event
	}
	return names
}
