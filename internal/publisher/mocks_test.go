package publisher

import (
	"context"
	"sync"

	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"github.com/segmentio/kafka-go"
)

type mockRepository struct {
	mu        sync.Mutex
	events    []*repository.OutboxEvent
	fetchErr  error
	markErr   error
	processed []string
}

func (m *mockRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []*repository.OutboxEvent
	for _, ev := range m.events {
		if !m.isProcessed(ev.ID) && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkEventAsProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	return nil
}

func (m *mockRepository) isProcessed(id string) bool {
	for _, p := range m.processed {
		if p == id {
			return true
		}
	}
	return false
}

func (m *mockRepository) processedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processed...)
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	// failOn makes writes of this event type fail
	failOn string
	closed bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, msg := range msgs {
		for _, h := range msg.Headers {
			if h.Key == "event_type" && string(h.Value) == w.failOn {
				return errBrokerDown
			}
		}
		w.messages = append(w.messages, msg)
	}
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func (w *mockWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}
