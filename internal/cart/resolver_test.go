package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mug = &domain.Product{ID: 1, Name: "Branded Mug", Price: domain.Units(1000), ImageURL: "mug.png", Stock: 10}
	tee = &domain.Product{ID: 2, Name: "T-Shirt", Price: domain.Units(500), ImageURL: "tee.png", Stock: 2}
)

func TestResolve_OverwritesClientPricing(t *testing.T) {
	r := NewResolver(newCatalog(mug, tee))

	lines, err := r.Resolve(context.Background(), RawCart{
		{ID: "1", Name: "Cheap Mug", Price: domain.Units(1), Quantity: 2, Image: "fake.png"},
		{ID: "2", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "Branded Mug", lines[0].Name)
	assert.Equal(t, domain.Units(1000), lines[0].UnitPrice)
	assert.Equal(t, "mug.png", lines[0].ImageURL)
	assert.Equal(t, domain.PlainRef(1), lines[0].Ref)
	assert.Equal(t, int64(2), lines[1].ProductID)
}

func TestResolve_CustomizedRef(t *testing.T) {
	r := NewResolver(newCatalog(mug))
	custom := &domain.Customization{Text: "ACME", Color: "red", ImageRef: "data:image/png;base64,AAAA"}

	lines, err := r.Resolve(context.Background(), RawCart{
		{ID: "1_custom_k3j2", Quantity: 1, Customization: custom},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.True(t, lines[0].Ref.IsCustomized())
	assert.Equal(t, int64(1), lines[0].ProductID)
	require.NotNil(t, lines[0].Customization)
	assert.Equal(t, "ACME", lines[0].Customization.Text)

	custom.Text = "changed"
	assert.Equal(t, "ACME", lines[0].Customization.Text, "resolved line must not alias client data")
}

func TestResolve_ProductIDField(t *testing.T) {
	r := NewResolver(newCatalog(mug))
	id := int64(1)

	lines, err := r.Resolve(context.Background(), RawCart{{ID: "legacy-key", ProductID: &id, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), lines[0].ProductID)

	other := int64(2)
	_, err = r.Resolve(context.Background(), RawCart{{ID: "1_custom_x", ProductID: &other, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestResolve_ProductNotFoundRejectsWholeCart(t *testing.T) {
	r := NewResolver(newCatalog(mug))

	lines, err := r.Resolve(context.Background(), RawCart{
		{ID: "1", Quantity: 1},
		{ID: "99", Quantity: 1},
	})
	assert.Nil(t, lines)

	var nf *ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.ProductID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestResolve_Quantities(t *testing.T) {
	r := NewResolver(newCatalog(mug, tee))

	_, err := r.Resolve(context.Background(), RawCart{{ID: "1", Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = r.Resolve(context.Background(), RawCart{{ID: "1", Quantity: -3}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = r.Resolve(context.Background(), RawCart{{ID: "2", Quantity: 3}})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
}

func TestResolve_SumsLinesForStock(t *testing.T) {
	r := NewResolver(newCatalog(tee))

	_, err := r.Resolve(context.Background(), RawCart{
		{ID: "2", Quantity: 1},
		{ID: "2_custom_a", Quantity: 2},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
}

func TestResolve_EmptyAndInvalid(t *testing.T) {
	r := NewResolver(newCatalog(mug))

	_, err := r.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = r.Resolve(context.Background(), RawCart{{ID: "abc", Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestResolve_CatalogError(t *testing.T) {
	catalog := newCatalog(mug)
	catalog.err = errors.New("db down")

	_, err := NewResolver(catalog).Resolve(context.Background(), RawCart{{ID: "1", Quantity: 1}})
	assert.Error(t, err)
}

func TestRawCart_UnmarshalJSON(t *testing.T) {
	data := `[
		{"id": 1, "name": "Mug", "price": 1000, "quantity": 2, "image": "mug.png"},
		{"id": "1_custom_zz", "product_id": 1, "price": "999.99", "quantity": 1,
		 "customization": {"text": "Hi", "color": "blue", "size": "L", "image": "custom_1_a.png"}}
	]`

	var raw RawCart
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	require.Len(t, raw, 2)

	assert.Equal(t, RawRef("1"), raw[0].ID)
	assert.Equal(t, RawRef("1_custom_zz"), raw[1].ID)
	require.NotNil(t, raw[1].ProductID)
	assert.Equal(t, int64(1), *raw[1].ProductID)
	assert.Equal(t, "custom_1_a.png", raw[1].Customization.ImageRef)
}
