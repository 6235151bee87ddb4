package http

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"go.uber.org/zap"
)

const (
	sessionHeader      = "X-Session-ID"
	maxCheckoutBody    = 16 << 20 // inline images travel in the cart
	maxMultipartMemory = 8 << 20
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	RetryPayment(ctx context.Context, req checkout.RetryRequest) (*checkout.Result, error)
}

type CartSessions interface {
	Get(ctx context.Context, sessionID string) (cart.RawCart, error)
	Save(ctx context.Context, sessionID string, raw cart.RawCart) error
	Clear(ctx context.Context, sessionID string) error
}

type TokenIssuer interface {
	Issue(customerID string, role domain.Role) (string, error)
	IssueGuest(customerID, orderID string) (string, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	sessions CartSessions
	tokens   TokenIssuer
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(svc CheckoutService, sessions CartSessions, tokens TokenIssuer, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{checkout: svc, sessions: sessions, tokens: tokens, timeout: timeout, logger: logger}
}

type CheckoutRequestDTO struct {
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Address        string       `json:"address"`
	City           string       `json:"city"`
	State          string       `json:"state"`
	PostalCode     string       `json:"postal_code"`
	Country        string       `json:"country"`
	PaymentMethod  string       `json:"payment_method"`
	MpesaPhone     string       `json:"mpesa_phone"`
	Notes          string       `json:"notes"`
	CreateAccount  flexBool     `json:"create_account"`
	Password       string       `json:"password"`
	ShippingOption string       `json:"shipping_option"`
	IdempotencyKey string       `json:"idempotency_key"`
	Cart           cart.RawCart `json:"cart"`
}

type CheckoutResponseDTO struct {
	OrderID       string       `json:"order_id"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	Subtotal      domain.Money `json:"subtotal"`
	Tax           domain.Money `json:"tax"`
	Shipping      domain.Money `json:"shipping"`
	Total         domain.Money `json:"total"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Instructions  string       `json:"instructions,omitempty"`
	Retry         string       `json:"retry,omitempty"`
	AccessToken   string       `json:"access_token,omitempty"`
}

// flexBool accepts true/false as JSON booleans or as form style strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = flexBool(parseBool(t))
	case float64:
		*b = t != 0
	case nil:
		*b = false
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "on" || s == "yes" {
		return true
	}
	v, _ := strconv.ParseBool(s)
	return v
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)
	dto, err := decodeCheckout(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(sessionHeader))
	if len(dto.Cart) == 0 && sessionID != "" && h.sessions != nil {
		raw, err := h.sessions.Get(ctx, sessionID)
		if err != nil && !errors.Is(err, cart.ErrCartNotFound) {
			handleServiceError(w, h.logger, err)
			return
		}
		dto.Cart = raw
	}

	claims := auth.FromContext(r.Context())
	req := checkout.Request{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     dto.Email,
		Phone:     dto.Phone,
		Address: domain.Address{
			Line:       dto.Address,
			City:       dto.City,
			State:      dto.State,
			PostalCode: dto.PostalCode,
			Country:    dto.Country,
		},
		PaymentMethod:  dto.PaymentMethod,
		MpesaPhone:     dto.MpesaPhone,
		Notes:          dto.Notes,
		CreateAccount:  bool(dto.CreateAccount),
		Password:       dto.Password,
		ShippingOption: dto.ShippingOption,
		IdempotencyKey: firstNonEmpty(dto.IdempotencyKey, r.Header.Get("Idempotency-Key")),
		Cart:           dto.Cart,
	}
	if claims != nil && claims.Role == domain.RoleCustomer {
		req.CustomerID = claims.CustomerID()
	}

	res, err := h.checkout.PlaceOrder(ctx, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if sessionID != "" && h.sessions != nil && !res.Replayed {
		if err := h.sessions.Clear(ctx, sessionID); err != nil {
			h.logger.Warn("failed to clear session cart", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	resp := checkoutResponse(res)
	if h.tokens != nil && (claims == nil || claims.Role == domain.RoleGuest) {
		var token string
		var err error
		if req.CreateAccount && !res.Replayed {
			token, err = h.tokens.Issue(res.Order.CustomerID, domain.RoleCustomer)
		} else {
			token, err = h.tokens.IssueGuest(res.Order.CustomerID, res.Order.ID)
		}
		if err != nil {
			h.logger.Error("failed to issue access token", zap.String("order_id", res.Order.ID), zap.Error(err))
		}
		resp.AccessToken = token
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, resp)
}

func checkoutResponse(res *checkout.Result) CheckoutResponseDTO {
	o := res.Order
	resp := CheckoutResponseDTO{
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Shipping:      o.Shipping,
		Total:         o.TotalPrice,
	}
	if res.Transaction != nil {
		resp.TransactionID = res.Transaction.TransactionID
	}
	switch res.PaymentState {
	case checkout.PaymentUnavailable, checkout.PaymentFailed:
		resp.Retry = res.Guidance
	default:
		resp.Instructions = res.Guidance
	}
	return resp
}

func decodeCheckout(r *http.Request) (*CheckoutRequestDTO, error) {
	var dto CheckoutRequestDTO
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
				return nil, errors.New("invalid form body")
			}
		} else if err := r.ParseForm(); err != nil {
			return nil, errors.New("invalid form body")
		}
		f := r.PostForm
		dto = CheckoutRequestDTO{
			FirstName:      f.Get("first_name"),
			LastName:       f.Get("last_name"),
			Email:          f.Get("email"),
			Phone:          f.Get("phone"),
			Address:        f.Get("address"),
			City:           f.Get("city"),
			State:          f.Get("state"),
			PostalCode:     f.Get("postal_code"),
			Country:        f.Get("country"),
			PaymentMethod:  f.Get("payment_method"),
			MpesaPhone:     f.Get("mpesa_phone"),
			Notes:          f.Get("notes"),
			CreateAccount:  flexBool(parseBool(f.Get("create_account"))),
			Password:       f.Get("password"),
			ShippingOption: f.Get("shipping_option"),
			IdempotencyKey: f.Get("idempotency_key"),
		}
		if raw := strings.TrimSpace(f.Get("cart")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &dto.Cart); err != nil {
				return nil, errors.New("cart must be a JSON array of items")
			}
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			return nil, errors.New("invalid JSON body")
		}
	}
	return &dto, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
