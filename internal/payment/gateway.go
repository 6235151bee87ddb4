// Package payment initiates payments for each supported method and drives
// asynchronous ones to an outcome.
package payment

import (
	"context"

	"github.com/Hassan1910/Terral-sub000/domain"
)

// Params carries method specific input from the checkout form.
type Params struct {
	Phone string
}

type InitiateRequest struct {
	OrderID string
	Amount  domain.Money
	Params  Params
}

// PendingTransaction is what a gateway hands back after initiation. The
// caller persists it as a pending Payment row.
type PendingTransaction struct {
	TransactionID string
	OrderID       string
	Method        domain.PaymentMethod
	Amount        domain.Money
	Status        domain.PaymentStatus
	Phone         string
	Instructions  string
	Async         bool
}

// Gateway is one payment method.
type Gateway interface {
	Method() domain.PaymentMethod
	// Validate checks and normalizes params without side effects.
	Validate(params Params) (Params, error)
	Initiate(ctx context.Context, req InitiateRequest) (PendingTransaction, error)
}

// Activator is implemented by asynchronous gateways. Activate starts
// out-of-band settlement and must only be called once the Payment row exists.
type Activator interface {
	Activate(ctx context.Context, tx PendingTransaction) error
}

// Abandoner stops any settlement still running for an order.
type Abandoner interface {
	Abandon(orderID string)
}

// CallbackEvent is a gateway's report of a transaction outcome.
type CallbackEvent struct {
	TransactionID string       `json:"transaction_id"`
	Success       bool         `json:"success"`
	Amount        domain.Money `json:"amount"`
}

func (e CallbackEvent) Outcome() domain.PaymentStatus {
	if e.Success {
		return domain.PaymentStatusCompleted
	}
	return domain.PaymentStatusFailed
}

// Confirmer receives settlement progress for a transaction.
type Confirmer interface {
	Prompted(ctx context.Context, transactionID string) error
	Confirm(ctx context.Context, ev CallbackEvent) error
}

// Settler resolves asynchronous transactions. The simulator is one
// implementation; a real gateway client is another.
type Settler interface {
	Ready(ctx context.Context) error
	Settle(ctx context.Context, tx PendingTransaction) error
	Abandon(orderID string)
}
