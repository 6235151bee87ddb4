package checkout

import (
	"context"
	"sync"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
)

type mockSettler struct {
	mu        sync.Mutex
	readyErr  error
	settleErr error
	settled   []payment.PendingTransaction
	abandoned []string
}

func (m *mockSettler) Ready(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyErr
}

func (m *mockSettler) Settle(_ context.Context, tx payment.PendingTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return m.settleErr
	}
	m.settled = append(m.settled, tx)
	return nil
}

func (m *mockSettler) Abandon(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, orderID)
}

func (m *mockSettler) settledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.settled)
}

// failingAssets accepts the first n inline images and then fails.
type failingAssets struct {
	inner   AssetStore
	allowed int
	deleted []string
}

func (f *failingAssets) Persist(ctx context.Context, ref string) (string, error) {
	if f.allowed == 0 {
		return "", errPersist
	}
	f.allowed--
	return f.inner.Persist(ctx, ref)
}

func (f *failingAssets) Delete(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return f.inner.Delete(ctx, name)
}

// drainingResolver empties a product's stock after resolving, as if another
// buyer committed in between.
type drainingResolver struct {
	inner CartResolver
	drain func()
}

func (d *drainingResolver) Resolve(ctx context.Context, raw cart.RawCart) ([]domain.CartLineItem, error) {
	lines, err := d.inner.Resolve(ctx, raw)
	if err == nil {
		d.drain()
	}
	return lines, err
}

// racingStore opens a competing payment attempt right after the open-attempt
// check, as a concurrent retry on another connection would.
type racingStore struct {
	Store
	once sync.Once
}

func (r *racingStore) ListPaymentsByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	payments, err := r.Store.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		err = r.Store.InsertPayment(ctx, &domain.Payment{
			OrderID:       orderID,
			Amount:        domain.Units(1),
			Method:        domain.PaymentMethodMpesa,
			TransactionID: "MPESA-concurrent",
		})
	})
	return payments, err
}
