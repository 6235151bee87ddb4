// Package cart validates client carts against the live catalog.
package cart

import (
	"context"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
)

// Catalog is the product lookup the resolver needs.
type Catalog interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve turns raw into line items priced from the catalog. Any unknown
// product, non-positive quantity or stock shortfall rejects the whole cart.
// Lines for the same product are summed before comparing with stock.
func (r *Resolver) Resolve(ctx context.Context, raw RawCart) ([]domain.CartLineItem, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyCart
	}

	refs := make([]domain.ProductRef, len(raw))
	var ids []int64
	seen := make(map[int64]bool)
	for i, item := range raw {
		ref, err := item.ref()
		if err != nil {
			return nil, err
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrInvalidQuantity, ref.ProductID, item.Quantity)
		}
		refs[i] = ref
		if !seen[ref.ProductID] {
			seen[ref.ProductID] = true
			ids = append(ids, ref.ProductID)
		}
	}

	products, err := r.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	requested := make(map[int64]int, len(ids))
	lines := make([]domain.CartLineItem, 0, len(raw))
	for i, item := range raw {
		ref := refs[i]
		p, ok := products[ref.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: ref.ProductID}
		}
		requested[p.ID] += item.Quantity

		var custom *domain.Customization
		if !item.Customization.IsZero() {
			c := *item.Customization
			custom = &c
		}
		lines = append(lines, domain.CartLineItem{
			Ref:           ref,
			ProductID:     p.ID,
			Name:          p.Name,
			ImageURL:      p.ImageURL,
			Quantity:      item.Quantity,
			UnitPrice:     p.Price,
			Customization: custom,
		})
	}

	for _, id := range ids {
		p := products[id]
		if requested[id] > p.Stock {
			return nil, &InsufficientStockError{ProductID: id, Requested: requested[id], Available: p.Stock}
		}
	}
	return lines, nil
}
