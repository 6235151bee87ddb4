package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether the order state machine allows from -> to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type ShippingOption string

const (
	ShippingStandard ShippingOption = "standard"
	ShippingExpress  ShippingOption = "express"
)

type Address struct {
	Line       string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID              string
	CustomerID      string
	Subtotal        Money
	Tax             Money
	Shipping        Money
	TotalPrice      Money
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	ShippingOption  ShippingOption
	ShippingAddress Address
	Notes           string
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []OrderItem
}

// OrderItem stores name and price as they were when the order was placed.
type OrderItem struct {
	ID                  string
	OrderID             string
	ProductID           int64
	ProductNameSnapshot string
	Quantity            int
	PriceSnapshot       Money
	CustomText          string
	CustomColor         string
	CustomSize          string
	CustomImage         string
}

func (i OrderItem) Subtotal() Money {
	return i.PriceSnapshot.Times(i.Quantity)
}
