// Package orders exposes order lookups and operator status changes.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("orders: order not found")
	ErrInvalidTransition = errors.New("orders: status transition not allowed")
	ErrConflict          = errors.New("orders: order was modified concurrently")
)

type Store interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListPaymentsByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
	CancelOrder(ctx context.Context, id string, from domain.OrderStatus) error
}

// Abandoner stops payment settlement still running for an order.
type Abandoner interface {
	Abandon(orderID string)
}

// View is an order with its items and every payment attempt.
type View struct {
	Order    *domain.Order
	Payments []*domain.Payment
}

type Service struct {
	store     Store
	abandoner Abandoner
	logger    *zap.Logger
}

func NewService(store Store, abandoner Abandoner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, abandoner: abandoner, logger: logger.Named("orders")}
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	payments, err := s.store.ListPaymentsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return &View{Order: order, Payments: payments}, nil
}

// UpdateStatus moves an order to status when the state machine allows it.
// Canceling returns the stock and abandons any running payment settlement.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	from := order.Status
	if !from.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}

	if status == domain.OrderStatusCanceled {
		err = s.store.CancelOrder(ctx, id, from)
	} else {
		err = s.store.UpdateOrderStatus(ctx, id, from, status)
	}
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if status == domain.OrderStatusCanceled && s.abandoner != nil {
		s.abandoner.Abandon(id)
	}
	s.logger.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(status)))

	return s.store.GetOrder(ctx, id)
}
