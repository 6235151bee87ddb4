package domain

import (
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

// CanTransitionTo reports whether the payment state machine allows from -> to.
// The machine only moves forward; refunded is the sole branch out of completed.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a gateway outcome has already been applied.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

func (s PaymentStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentMethodMpesa          PaymentMethod = "mpesa"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

// ParsePaymentMethod maps the checkout form value to a PaymentMethod.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentMethodMpesa:
		return PaymentMethodMpesa, true
	case PaymentMethodCard:
		return PaymentMethodCard, true
	case PaymentMethodCashOnDelivery, "cod", "cash_on_delivery":
		return PaymentMethodCashOnDelivery, true
	case PaymentMethodBankTransfer, "bank":
		return PaymentMethodBankTransfer, true
	}
	return "", false
}

// OperatorSettled reports whether payments of this method are confirmed by
// an operator rather than a gateway callback.
func (m PaymentMethod) OperatorSettled() bool {
	return m == PaymentMethodCashOnDelivery || m == PaymentMethodBankTransfer
}

type Payment struct {
	ID            string
	OrderID       string
	Amount        Money
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	Phone         string
	PaymentDate   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
