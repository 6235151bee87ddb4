package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
)

// RawRef is a cart item id as the client sent it: a number or a string such
// as "12_custom_ab12".
type RawRef string

func (r *RawRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cart item id: %w", err)
	}
	*r = RawRef(n.String())
	return nil
}

// RawItem is one cart line as submitted. Name, Price and Image are display
// hints only; they are replaced by catalog values during resolution.
type RawItem struct {
	ID            RawRef                `json:"id"`
	ProductID     *int64                `json:"product_id,omitempty"`
	Name          string                `json:"name,omitempty"`
	Price         domain.Money          `json:"price,omitempty"`
	Quantity      int                   `json:"quantity"`
	Image         string                `json:"image,omitempty"`
	Customization *domain.Customization `json:"customization,omitempty"`
}

type RawCart []RawItem

// ref decides the product reference for an item once.
func (it RawItem) ref() (domain.ProductRef, error) {
	parsed, err := domain.ParseProductRef(string(it.ID))
	if it.ProductID == nil {
		if err != nil {
			return domain.ProductRef{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
		}
		return parsed, nil
	}

	id := *it.ProductID
	if id <= 0 {
		return domain.ProductRef{}, fmt.Errorf("%w: product_id must be positive", ErrInvalidItem)
	}
	if err != nil {
		return domain.PlainRef(id), nil
	}
	if parsed.ProductID != id {
		return domain.ProductRef{}, fmt.Errorf("%w: id %q does not match product_id %d", ErrInvalidItem, it.ID, id)
	}
	return parsed, nil
}
