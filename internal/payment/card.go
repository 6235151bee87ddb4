package payment

import (
	"context"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
)

// Card accepts card payments through a hosted flow; no card data passes
// through here.
type Card struct {
	settler Settler
}

func NewCard(settler Settler) *Card {
	return &Card{settler: settler}
}

func (c *Card) Method() domain.PaymentMethod {
	return domain.PaymentMethodCard
}

func (c *Card) Validate(params Params) (Params, error) {
	return Params{}, nil
}

func (c *Card) Initiate(ctx context.Context, req InitiateRequest) (PendingTransaction, error) {
	if req.Amount <= 0 {
		return PendingTransaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPaymentParams)
	}
	if err := ready(ctx, c.settler); err != nil {
		return PendingTransaction{}, err
	}
	return PendingTransaction{
		TransactionID: "CARD-" + uuid.NewString(),
		OrderID:       req.OrderID,
		Method:        domain.PaymentMethodCard,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusPending,
		Instructions:  "Your card payment is being processed.",
		Async:         true,
	}, nil
}

func (c *Card) Activate(ctx context.Context, tx PendingTransaction) error {
	return c.settler.Settle(ctx, tx)
}

func (c *Card) Abandon(orderID string) {
	if c.settler != nil {
		c.settler.Abandon(orderID)
	}
}
