// Package pricing turns resolved cart lines into order totals.
package pricing

import (
	"errors"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownShippingOption = errors.New("pricing: unknown shipping option")
	ErrInvalidInput          = errors.New("pricing: invalid input")
)

var DefaultTaxRate = decimal.RequireFromString("0.16")

func DefaultShippingTable() map[domain.ShippingOption]domain.Money {
	return map[domain.ShippingOption]domain.Money{
		domain.ShippingStandard: domain.Units(350),
		domain.ShippingExpress:  domain.Units(550),
	}
}

type Totals struct {
	Subtotal domain.Money `json:"subtotal"`
	Tax      domain.Money `json:"tax"`
	Shipping domain.Money `json:"shipping"`
	Total    domain.Money `json:"total"`
}

type Engine struct {
	taxRate  decimal.Decimal
	shipping map[domain.ShippingOption]domain.Money
}

// EngineDeps configures the engine. An unset TaxRate or Shipping table falls
// back to the defaults.
type EngineDeps struct {
	TaxRate  decimal.NullDecimal
	Shipping map[domain.ShippingOption]domain.Money
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	rate := DefaultTaxRate
	if deps.TaxRate.Valid {
		rate = deps.TaxRate.Decimal
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: tax rate cannot be negative", ErrInvalidInput)
	}
	table := deps.Shipping
	if len(table) == 0 {
		table = DefaultShippingTable()
	}
	copied := make(map[domain.ShippingOption]domain.Money, len(table))
	for k, v := range table {
		if v < 0 {
			return nil, fmt.Errorf("%w: shipping fee for %s cannot be negative", ErrInvalidInput, k)
		}
		copied[k] = v
	}
	return &Engine{taxRate: rate, shipping: copied}, nil
}

// Price computes subtotal, tax, shipping and total. Tax is rounded half up to
// the cent exactly once; the total is an exact sum of the three parts.
func (e *Engine) Price(items []domain.CartLineItem, option domain.ShippingOption) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	if option == "" {
		option = domain.ShippingStandard
	}
	fee, ok := e.shipping[option]
	if !ok {
		return Totals{}, fmt.Errorf("%w: %q", ErrUnknownShippingOption, option)
	}

	var subtotal domain.Money
	for _, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidInput, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return Totals{}, fmt.Errorf("%w: negative price for product %d", ErrInvalidInput, item.ProductID)
		}
		subtotal += item.Subtotal()
	}

	tax := domain.MoneyFromDecimal(subtotal.Decimal().Mul(e.taxRate))
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: fee,
		Total:    subtotal + tax + fee,
	}, nil
}

func (e *Engine) ShippingOptions() map[domain.ShippingOption]domain.Money {
	out := make(map[domain.ShippingOption]domain.Money, len(e.shipping))
	for k, v := range e.shipping {
		out[k] = v
	}
	return out
}
