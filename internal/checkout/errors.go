package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation          = errors.New("checkout: validation failed")
	ErrInvalidCustomerData = errors.New("checkout: invalid customer data")
	ErrDatabase            = errors.New("checkout: database error")
	ErrOrderNotFound       = errors.New("checkout: order not found")
	ErrPaymentInProgress   = errors.New("checkout: a payment attempt is still in progress")
	ErrAlreadyPaid         = errors.New("checkout: order is already paid")
	ErrOrderClosed         = errors.New("checkout: order no longer accepts payments")
)

// ValidationError lists every rejected field with a message for the user.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
