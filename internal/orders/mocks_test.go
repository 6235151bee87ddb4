package orders

import (
	"context"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
)

type mockStore struct {
	orders   map[string]*domain.Order
	payments map[string][]*domain.Payment
	// conflict makes the next status write lose its CAS
	conflict bool
	canceled []string
}

func newMockStore(orders ...*domain.Order) *mockStore {
	m := &mockStore{orders: map[string]*domain.Order{}, payments: map[string][]*domain.Payment{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) ListPaymentsByOrder(_ context.Context, orderID string) ([]*domain.Payment, error) {
	return m.payments[orderID], nil
}

func (m *mockStore) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	o := m.orders[id]
	if m.conflict || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (m *mockStore) CancelOrder(ctx context.Context, id string, from domain.OrderStatus) error {
	if err := m.UpdateOrderStatus(ctx, id, from, domain.OrderStatusCanceled); err != nil {
		return err
	}
	m.canceled = append(m.canceled, id)
	return nil
}

type mockAbandoner struct {
	abandoned []string
}

func (m *mockAbandoner) Abandon(orderID string) {
	m.abandoned = append(m.abandoned, orderID)
}
