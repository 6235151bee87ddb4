package cart

import (
	"errors"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("session cart not found")
)

// ProductNotFoundError names the product that rejected the cart.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

type InsufficientStockError = domain.InsufficientStockError
