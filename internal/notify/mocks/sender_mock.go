package mocks

import (
	"context"
	"sync"
)

// Delivery captures one call to MockSender.Send.
type Delivery struct {
	Target string
	Title  string
	Body   string
}

// MockSender records deliveries for any channel.
type MockSender struct {
	mu sync.RWMutex

	Deliveries []Delivery

	// SendError allows simulating delivery failures.
	SendError error
}

// NewMockSender creates a new MockSender instance.
func NewMockSender() *MockSender {
	return &MockSender{Deliveries: make([]Delivery, 0)}
}

// Send records the delivery or returns SendError.
func (m *MockSender) Send(_ context.Context, target, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendError != nil {
		return m.SendError
	}
	m.Deliveries = append(m.Deliveries, Delivery{Target: target, Title: title, Body: body})
	return nil
}

// Count returns the number of recorded deliveries.
func (m *MockSender) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Deliveries)
}

// Last returns the most recent delivery, or nil if none.
func (m *MockSender) Last() *Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Deliveries) == 0 {
		return nil
	}
	return &m.Deliveries[len(m.Deliveries)-1]
}
