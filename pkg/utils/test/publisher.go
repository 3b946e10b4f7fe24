// Package testutils holds fakes shared by voxrelay package tests.
package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
)

// MockPublisher records published exchange events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ExchangeEvent
	closed bool

	// Err is returned from every PublishExchange call when set.
	Err error
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishExchange(_ context.Context, event *eventstream.ExchangeEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("publisher already closed")
	}
	m.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []*eventstream.ExchangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.ExchangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
