package domain

import "time"

// Product is the slice of the catalog the checkout pipeline reads.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       Money
	ImageURL    string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
