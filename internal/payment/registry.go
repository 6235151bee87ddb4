package payment

import (
	"errors"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
)

// Registry selects the gateway for a payment method.
type Registry struct {
	gateways map[domain.PaymentMethod]Gateway
}

func NewRegistry(gateways ...Gateway) (*Registry, error) {
	if len(gateways) == 0 {
		return nil, errors.New("payment: at least one gateway is required")
	}
	r := &Registry{gateways: make(map[domain.PaymentMethod]Gateway, len(gateways))}
	for _, g := range gateways {
		if g == nil {
			return nil, errors.New("payment: nil gateway")
		}
		if _, dup := r.gateways[g.Method()]; dup {
			return nil, fmt.Errorf("payment: duplicate gateway for %s", g.Method())
		}
		r.gateways[g.Method()] = g
	}
	return r, nil
}

func (r *Registry) Get(method domain.PaymentMethod) (Gateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return g, nil
}

// Abandon stops pending settlement for orderID on every gateway that has any.
func (r *Registry) Abandon(orderID string) {
	for _, g := range r.gateways {
		if a, ok := g.(Abandoner); ok {
			a.Abandon(orderID)
		}
	}
}
