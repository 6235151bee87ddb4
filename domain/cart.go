package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// customMarker separates the real product id from the customization token in
// legacy cart ids such as "12_custom_1700000000".
const customMarker = "_custom_"

var ErrInvalidProductRef = errors.New("invalid product reference")

// ProductRef identifies the catalog product behind a cart line. A customized
// ref carries the token the client generated for that variant; the token is
// never used as a product id.
type ProductRef struct {
	ProductID int64
	Token     string
}

func PlainRef(id int64) ProductRef {
	return ProductRef{ProductID: id}
}

func CustomizedRef(id int64, token string) ProductRef {
	return ProductRef{ProductID: id, Token: token}
}

func (r ProductRef) IsCustomized() bool {
	return r.Token != ""
}

func (r ProductRef) String() string {
	if r.IsCustomized() {
		return fmt.Sprintf("%d%s%s", r.ProductID, customMarker, r.Token)
	}
	return strconv.FormatInt(r.ProductID, 10)
}

// ParseProductRef splits the raw cart id once, at cart-build time.
func ParseProductRef(raw string) (ProductRef, error) {
	raw = strings.TrimSpace(raw)
	idPart, token, customized := strings.Cut(raw, customMarker)
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return ProductRef{}, fmt.Errorf("%w: %q", ErrInvalidProductRef, raw)
	}
	if customized {
		if token == "" {
			return ProductRef{}, fmt.Errorf("%w: empty customization token in %q", ErrInvalidProductRef, raw)
		}
		return CustomizedRef(id, token), nil
	}
	return PlainRef(id), nil
}

// Customization holds the buyer supplied personalisation of a line.
// ImageRef is either a stored filename or an inline data URI until the
// asset store has persisted it.
type Customization struct {
	Text     string `json:"text,omitempty"`
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
	ImageRef string `json:"image,omitempty"`
}

func (c *Customization) IsZero() bool {
	return c == nil || (c.Text == "" && c.Color == "" && c.Size == "" && c.ImageRef == "")
}

// CartLineItem is a cart line after resolution against the catalog; Name and
// UnitPrice are authoritative snapshots.
type CartLineItem struct {
	Ref           ProductRef
	ProductID     int64
	Name          string
	ImageURL      string
	Quantity      int
	UnitPrice     Money
	Customization *Customization
}

func (i CartLineItem) Subtotal() Money {
	return i.UnitPrice.Times(i.Quantity)
}
