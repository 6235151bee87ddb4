package reconciler

import "errors"

var (
	ErrPaymentNotFound  = errors.New("reconciler: payment not found")
	ErrAmountMismatch   = errors.New("reconciler: callback amount does not match payment")
	ErrNotRefundable    = errors.New("reconciler: only completed payments can be refunded")
	ErrManualNotAllowed = errors.New("reconciler: payment method is settled by its gateway")
	ErrInvalidCallback  = errors.New("reconciler: invalid callback")
	ErrOperatorSettled  = errors.New("reconciler: payment method is confirmed by an operator")
)
