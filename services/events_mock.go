package services

import (
	"context"
	"sync"
)

// MockEventPublisher records published events for testing
type MockEventPublisher struct {
	events []OrderEvent
	err    error
	mu     sync.RWMutex
}

// NewMockEventPublisher creates a new mock publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// SetAsMockForTesting sets this mock as the global publisher instance for testing
func (m *MockEventPublisher) SetAsMockForTesting() {
	SetEventPublisher(m)
}

// FailWith makes every later Publish return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Publish records the event
func (m *MockEventPublisher) Publish(_ context.Context, event OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MockEventPublisher) Events() []OrderEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]OrderEvent, len(m.events))
	copy(events, m.events)
	return events
}

// EventTypes returns the recorded event types in order
func (m *MockEventPublisher) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}
