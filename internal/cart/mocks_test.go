package cart

import (
	"context"

	"github.com/Hassan1910/Terral-sub000/domain"
)

type mockCatalog struct {
	products map[int64]*domain.Product
	err      error
	calls    int
}

func (m *mockCatalog) GetProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newCatalog(products ...*domain.Product) *mockCatalog {
	m := &mockCatalog{products: map[int64]*domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}
