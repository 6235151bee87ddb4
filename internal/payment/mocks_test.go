package payment

import (
	"context"
	"sync"
)

type mockConfirmer struct {
	mu        sync.Mutex
	prompted  []string
	confirmed []CallbackEvent
	err       error
}

func (m *mockConfirmer) Prompted(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompted = append(m.prompted, transactionID)
	return nil
}

func (m *mockConfirmer) Confirm(_ context.Context, ev CallbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append(m.confirmed, ev)
	return m.err
}

func (m *mockConfirmer) events() []CallbackEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CallbackEvent(nil), m.confirmed...)
}

type mockSettler struct {
	readyErr  error
	settled   []PendingTransaction
	abandoned []string
}

func (m *mockSettler) Ready(context.Context) error { return m.readyErr }

func (m *mockSettler) Settle(_ context.Context, tx PendingTransaction) error {
	m.settled = append(m.settled, tx)
	return nil
}

func (m *mockSettler) Abandon(orderID string) {
	m.abandoned = append(m.abandoned, orderID)
}
