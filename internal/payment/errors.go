package payment

import "errors"

var (
	ErrInvalidPaymentParams = errors.New("payment: invalid payment parameters")
	ErrGatewayUnavailable   = errors.New("payment: gateway unavailable")
	ErrUnsupportedMethod    = errors.New("payment: unsupported payment method")
)
