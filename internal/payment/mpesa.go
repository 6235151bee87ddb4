package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
)

// Mpesa issues STK push transactions. Settlement is delegated to a Settler.
type Mpesa struct {
	settler Settler
}

func NewMpesa(settler Settler) *Mpesa {
	return &Mpesa{settler: settler}
}

func (m *Mpesa) Method() domain.PaymentMethod {
	return domain.PaymentMethodMpesa
}

func (m *Mpesa) Validate(params Params) (Params, error) {
	phone, err := NormalizePhone(params.Phone)
	if err != nil {
		return Params{}, err
	}
	return Params{Phone: phone}, nil
}

func (m *Mpesa) Initiate(ctx context.Context, req InitiateRequest) (PendingTransaction, error) {
	params, err := m.Validate(req.Params)
	if err != nil {
		return PendingTransaction{}, err
	}
	if req.Amount <= 0 {
		return PendingTransaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPaymentParams)
	}
	if err := ready(ctx, m.settler); err != nil {
		return PendingTransaction{}, err
	}

	return PendingTransaction{
		TransactionID: "MPESA-" + uuid.NewString(),
		OrderID:       req.OrderID,
		Method:        domain.PaymentMethodMpesa,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusPending,
		Phone:         params.Phone,
		Instructions:  fmt.Sprintf("Check your phone (%s) and enter your M-Pesa PIN to pay KES %s.", params.Phone, req.Amount),
		Async:         true,
	}, nil
}

func (m *Mpesa) Activate(ctx context.Context, tx PendingTransaction) error {
	return m.settler.Settle(ctx, tx)
}

func (m *Mpesa) Abandon(orderID string) {
	if m.settler != nil {
		m.settler.Abandon(orderID)
	}
}

func ready(ctx context.Context, s Settler) error {
	if s == nil {
		return fmt.Errorf("%w: no settlement backend configured", ErrGatewayUnavailable)
	}
	if err := s.Ready(ctx); err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return nil
}
