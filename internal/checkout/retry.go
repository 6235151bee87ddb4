package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"go.uber.org/zap"
)

// RetryRequest starts a new payment attempt for an existing order. An empty
// PaymentMethod keeps the order's method and an empty MpesaPhone reuses the
// number of the previous attempt.
type RetryRequest struct {
	OrderID       string
	PaymentMethod string
	MpesaPhone    string
}

// RetryPayment initiates a fresh attempt for an unpaid order. Only one
// attempt may be open at a time.
func (s *Service) RetryPayment(ctx context.Context, req RetryRequest) (*Result, error) {
	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if order.Status.IsTerminal() {
		return nil, ErrOrderClosed
	}

	switch order.PaymentStatus {
	case domain.PaymentStatusCompleted, domain.PaymentStatusRefunded:
		return nil, ErrAlreadyPaid
	case domain.PaymentStatusProcessing:
		return nil, ErrPaymentInProgress
	}

	payments, err := s.store.ListPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	for _, p := range payments {
		if p.Status == domain.PaymentStatusPending || p.Status == domain.PaymentStatusProcessing {
			return nil, ErrPaymentInProgress
		}
	}

	method := order.PaymentMethod
	if strings.TrimSpace(req.PaymentMethod) != "" {
		m, ok := domain.ParsePaymentMethod(req.PaymentMethod)
		if !ok {
			return nil, &ValidationError{Fields: map[string]string{"payment_method": "must be one of mpesa, card, cash, bank_transfer"}}
		}
		method = m
	}
	gw, err := s.gateways.Get(method)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"payment_method": "is not available"}}
	}
	phone := req.MpesaPhone
	if strings.TrimSpace(phone) == "" && len(payments) > 0 {
		phone = payments[len(payments)-1].Phone
	}
	params, err := gw.Validate(payment.Params{Phone: phone})
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"mpesa_phone": "must be a valid Safaricom number such as 0712345678"}}
	}

	if order.PaymentStatus == domain.PaymentStatusFailed {
		err := s.store.TransitionPaymentStatus(ctx, order.ID, domain.PaymentStatusFailed, domain.PaymentStatusPending)
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrPaymentInProgress
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		order.PaymentStatus = domain.PaymentStatusPending
	}

	s.logger.Info("retrying payment", zap.String("order_id", order.ID), zap.String("method", string(method)))

	res := &Result{Order: order}
	if err := s.initiatePayment(ctx, res, gw, params); err != nil {
		return nil, err
	}
	return res, nil
}
