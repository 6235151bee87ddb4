package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"github.com/Hassan1910/Terral-sub000/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	Get(ctx context.Context, id string) (*orders.View, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// ImageURLer turns a stored customization filename into a public URL.
type ImageURLer interface {
	URL(name string) string
}

type OrdersHandler struct {
	orders   OrderService
	checkout CheckoutService
	images   ImageURLer
	timeout  time.Duration
	logger   *zap.Logger
}

func NewOrdersHandler(svc OrderService, checkoutSvc CheckoutService, images ImageURLer, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{orders: svc, checkout: checkoutSvc, images: images, timeout: timeout, logger: logger}
}

type OrderItemDTO struct {
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	Quantity    int          `json:"quantity"`
	Price       domain.Money `json:"price"`
	CustomText  string       `json:"custom_text,omitempty"`
	CustomColor string       `json:"custom_color,omitempty"`
	CustomSize  string       `json:"custom_size,omitempty"`
	CustomImage string       `json:"custom_image,omitempty"`
}

type PaymentDTO struct {
	TransactionID string       `json:"transaction_id"`
	Method        string       `json:"method"`
	Status        string       `json:"status"`
	Amount        domain.Money `json:"amount"`
	PaymentDate   *time.Time   `json:"payment_date,omitempty"`
}

type OrderResponseDTO struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"payment_status"`
	PaymentMethod  string         `json:"payment_method"`
	ShippingOption string         `json:"shipping_option"`
	Subtotal       domain.Money   `json:"subtotal"`
	Tax            domain.Money   `json:"tax"`
	Shipping       domain.Money   `json:"shipping"`
	Total          domain.Money   `json:"total"`
	Currency       string         `json:"currency"`
	Address        domain.Address `json:"shipping_address"`
	Notes          string         `json:"notes,omitempty"`
	Items          []OrderItemDTO `json:"items"`
	Payments       []PaymentDTO   `json:"payments"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (h *OrdersHandler) convertOrder(v *orders.View) OrderResponseDTO {
	o := v.Order
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		dto := OrderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductNameSnapshot,
			Quantity:    it.Quantity,
			Price:       it.PriceSnapshot,
			CustomText:  it.CustomText,
			CustomColor: it.CustomColor,
			CustomSize:  it.CustomSize,
		}
		if it.CustomImage != "" && h.images != nil {
			dto.CustomImage = h.images.URL(it.CustomImage)
		}
		items = append(items, dto)
	}
	payments := make([]PaymentDTO, 0, len(v.Payments))
	for _, p := range v.Payments {
		payments = append(payments, PaymentDTO{
			TransactionID: p.TransactionID,
			Method:        string(p.Method),
			Status:        string(p.Status),
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
		})
	}
	return OrderResponseDTO{
		ID:             o.ID,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  string(o.PaymentMethod),
		ShippingOption: string(o.ShippingOption),
		Subtotal:       o.Subtotal,
		Tax:            o.Tax,
		Shipping:       o.Shipping,
		Total:          o.TotalPrice,
		Currency:       domain.Currency,
		Address:        o.ShippingAddress,
		Notes:          o.Notes,
		Items:          items,
		Payments:       payments,
		CreatedAt:      o.CreatedAt,
	}
}

// authorize loads the order and checks the caller owns it, holds a guest
// token for it, or is an admin.
func (h *OrdersHandler) authorize(ctx context.Context, w http.ResponseWriter, orderID string) (*orders.View, bool) {
	claims := auth.FromContext(ctx)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return nil, false
	}
	view, err := h.orders.Get(ctx, orderID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return nil, false
	}
	if !claims.CanAccess(view.Order.ID, view.Order.CustomerID) {
		handleServiceError(w, h.logger, auth.ErrForbidden)
		return nil, false
	}
	return view, true
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	view, ok := h.authorize(ctx, w, orderID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.convertOrder(view))
}

// POST /api/v1/orders/{order_id}/payments/retry
func (h *OrdersHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var dto struct {
		PaymentMethod string `json:"payment_method"`
		MpesaPhone    string `json:"mpesa_phone"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	if _, ok := h.authorize(ctx, w, orderID); !ok {
		return
	}

	res, err := h.checkout.RetryPayment(ctx, checkout.RetryRequest{
		OrderID:       orderID,
		PaymentMethod: dto.PaymentMethod,
		MpesaPhone:    dto.MpesaPhone,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, checkoutResponse(res))
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var dto struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(dto.Status)))
	if status == "cancelled" {
		status = domain.OrderStatusCanceled
	}

	if _, err := h.orders.UpdateStatus(ctx, orderID, status); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	view, err := h.orders.Get(ctx, orderID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.convertOrder(view))
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return "", false
	}
	return orderID, true
}
