package http

import (
	"context"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"github.com/Hassan1910/Terral-sub000/internal/orders"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/reconciler"
)

type mockCheckout struct {
	result   *checkout.Result
	err      error
	requests []checkout.Request
	retries  []checkout.RetryRequest
}

func (m *mockCheckout) PlaceOrder(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	m.requests = append(m.requests, req)
	return m.result, m.err
}

func (m *mockCheckout) RetryPayment(_ context.Context, req checkout.RetryRequest) (*checkout.Result, error) {
	m.retries = append(m.retries, req)
	return m.result, m.err
}

type mockOrders struct {
	view      *orders.View
	err       error
	updateErr error
	updated   []domain.OrderStatus
}

func (m *mockOrders) Get(_ context.Context, id string) (*orders.View, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.view == nil || m.view.Order.ID != id {
		return nil, orders.ErrOrderNotFound
	}
	return m.view, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updated = append(m.updated, status)
	m.view.Order.Status = status
	return m.view.Order, nil
}

type mockReconciler struct {
	outcome    reconciler.Outcome
	err        error
	events     []payment.CallbackEvent
	reconciled map[string]bool
	refunded   []string
}

func (m *mockReconciler) Apply(_ context.Context, ev payment.CallbackEvent) (reconciler.Outcome, error) {
	m.events = append(m.events, ev)
	return m.outcome, m.err
}

func (m *mockReconciler) Reconcile(_ context.Context, txID string, received bool) (reconciler.Outcome, error) {
	if m.reconciled == nil {
		m.reconciled = map[string]bool{}
	}
	m.reconciled[txID] = received
	return m.outcome, m.err
}

func (m *mockReconciler) Refund(_ context.Context, txID string) (*domain.Payment, error) {
	m.refunded = append(m.refunded, txID)
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome.Payment, nil
}

type imageURLs struct{}

func (imageURLs) URL(name string) string {
	return "/uploads/customizations/" + name
}
