package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/assets"
	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"github.com/Hassan1910/Terral-sub000/internal/orders"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/reconciler"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router     http.Handler
	checkout   *mockCheckout
	orders     *mockOrders
	reconciler *mockReconciler
	sessions   *cart.SessionStore
	issuer     *auth.Issuer
	signer     *payment.CallbackSigner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := cart.NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	signer, err := payment.NewCallbackSigner("callback-secret")
	require.NoError(t, err)

	f := &fixture{
		checkout:   &mockCheckout{},
		orders:     &mockOrders{},
		reconciler: &mockReconciler{},
		sessions:   sessions,
		issuer:     issuer,
		signer:     signer,
	}
	f.router = NewRouter(RouterDeps{
		Checkout: NewCheckoutHandler(f.checkout, sessions, issuer, 5*time.Second, nil),
		Orders:   NewOrdersHandler(f.orders, f.checkout, imageURLs{}, 5*time.Second, nil),
		Payments: NewPaymentsHandler(f.reconciler, signer, 5*time.Second, nil),
		Sessions: NewSessionHandler(sessions, 5*time.Second, nil),
		Auth:     issuer,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) bearer(t *testing.T, customerID string, role domain.Role) map[string]string {
	t.Helper()
	token, err := f.issuer.Issue(customerID, role)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

// callback posts body to the gateway callback route, signed with sig.
func (f *fixture) callback(t *testing.T, body any, sig func([]byte) string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if sig != nil {
		req.Header.Set(payment.SignatureHeader, sig(raw))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) guestBearer(t *testing.T, customerID, orderID string) map[string]string {
	t.Helper()
	token, err := f.issuer.IssueGuest(customerID, orderID)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func committed() *checkout.Result {
	return &checkout.Result{
		Order: &domain.Order{
			ID:            "order-1",
			CustomerID:    "cust-1",
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusPending,
			Subtotal:      domain.Units(2500),
			Tax:           domain.Units(400),
			Shipping:      domain.Units(350),
			TotalPrice:    domain.Units(3250),
		},
		Transaction:  &payment.PendingTransaction{TransactionID: "MPESA-1"},
		PaymentState: checkout.PaymentInitiated,
		Guidance:     "Check your phone",
	}
}

func checkoutBody() map[string]any {
	return map[string]any{
		"first_name":     "Jane",
		"last_name":      "Wanjiku",
		"email":          "jane@example.com",
		"phone":          "0712345678",
		"address":        "1 Moi Avenue",
		"city":           "Nairobi",
		"country":        "Kenya",
		"payment_method": "mpesa",
		"cart":           []map[string]any{{"id": 1, "quantity": 2}, {"id": "2_custom_abc", "quantity": 1}},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestCheckout_Created(t *testing.T) {
	f := newFixture(t)
	f.checkout.result = committed()

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, "MPESA-1", resp.TransactionID)
	assert.Equal(t, "Check your phone", resp.Instructions)
	assert.Equal(t, domain.Units(3250), resp.Total)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := f.issuer.Parse(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.Subject)
	assert.Equal(t, domain.RoleGuest, claims.Role)
	assert.Equal(t, "order-1", claims.OrderID)

	require.Len(t, f.checkout.requests, 1)
	req := f.checkout.requests[0]
	assert.Equal(t, "k-1", req.IdempotencyKey)
	assert.Equal(t, "Nairobi", req.Address.City)
	require.Len(t, req.Cart, 2)
	assert.Equal(t, cart.RawRef("1"), req.Cart[0].ID)
	assert.Equal(t, cart.RawRef("2_custom_abc"), req.Cart[1].ID)
}

func TestCheckout_FormEncoded(t *testing.T) {
	f := newFixture(t)
	f.checkout.result = committed()

	form := url.Values{}
	for k, v := range checkoutBody() {
		if k == "cart" {
			continue
		}
		form.Set(k, fmt.Sprint(v))
	}
	form.Set("cart", `[{"id":1,"quantity":1}]`)
	form.Set("create_account", "on")
	form.Set("password", "correct horse")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := f.checkout.requests[0]
	assert.True(t, got.CreateAccount)
	assert.Equal(t, "correct horse", got.Password)
	require.Len(t, got.Cart, 1)

	resp := decode[CheckoutResponseDTO](t, rec)
	claims, err := f.issuer.Parse(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
}

func TestCheckout_UsesSessionCart(t *testing.T) {
	f := newFixture(t)
	f.checkout.result = committed()

	rec := f.do(t, http.MethodPut, "/api/v1/session/cart", []map[string]any{{"id": 7, "quantity": 3}},
		map[string]string{sessionHeader: "sess-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	body := checkoutBody()
	delete(body, "cart")
	rec = f.do(t, http.MethodPost, "/api/v1/checkout", body, map[string]string{sessionHeader: "sess-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := f.checkout.requests[0].Cart
	require.Len(t, got, 1)
	assert.Equal(t, cart.RawRef("7"), got[0].ID)
	assert.Equal(t, 3, got[0].Quantity)

	// the session cart is cleared once the order exists
	rec = f.do(t, http.MethodGet, "/api/v1/session/cart", nil, map[string]string{sessionHeader: "sess-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckout_AuthenticatedCustomer(t *testing.T) {
	f := newFixture(t)
	f.checkout.result = committed()

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), f.bearer(t, "cust-1", domain.RoleCustomer))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cust-1", f.checkout.requests[0].CustomerID)
	assert.Empty(t, decode[CheckoutResponseDTO](t, rec).AccessToken)
}

func TestCheckout_GuestTokenDoesNotActAsCustomer(t *testing.T) {
	f := newFixture(t)
	res := committed()
	res.Order.ID = "order-2"
	f.checkout.result = res

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), f.guestBearer(t, "cust-1", "order-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, f.checkout.requests[0].CustomerID)

	claims, err := f.issuer.Parse(decode[CheckoutResponseDTO](t, rec).AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, claims.Role)
	assert.Equal(t, "order-2", claims.OrderID)
}

func TestCheckout_ReplayedAccountRequestGetsGuestToken(t *testing.T) {
	f := newFixture(t)
	res := committed()
	res.Replayed = true
	f.checkout.result = res

	body := checkoutBody()
	body["create_account"] = true
	body["password"] = "s3cret-pass"
	rec := f.do(t, http.MethodPost, "/api/v1/checkout", body, map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	claims, err := f.issuer.Parse(decode[CheckoutResponseDTO](t, rec).AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, claims.Role)
	assert.Equal(t, "order-1", claims.OrderID)
}

func TestCheckout_Replay(t *testing.T) {
	f := newFixture(t)
	res := committed()
	res.Replayed = true
	f.checkout.result = res

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_GatewayUnavailable(t *testing.T) {
	f := newFixture(t)
	res := committed()
	res.Transaction = nil
	res.PaymentState = checkout.PaymentUnavailable
	res.Guidance = "retry the payment from your order page"
	f.checkout.result = res

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "retry the payment from your order page", resp.Retry)
	assert.Empty(t, resp.TransactionID)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &checkout.ValidationError{Fields: map[string]string{"email": "is required"}}, http.StatusUnprocessableEntity, "validation_failed"},
		{"stock", &domain.InsufficientStockError{ProductID: 3, Requested: 2, Available: 1}, http.StatusConflict, "insufficient_stock"},
		{"unknown product", &cart.ProductNotFoundError{ProductID: 9}, http.StatusUnprocessableEntity, "product_not_found"},
		{"empty cart", cart.ErrEmptyCart, http.StatusUnprocessableEntity, "invalid_cart"},
		{"invalid asset", fmt.Errorf("%w: not an image", assets.ErrInvalidAsset), http.StatusUnprocessableEntity, "invalid_asset"},
		{"asset persist", fmt.Errorf("%w: disk full", assets.ErrPersistFailure), http.StatusInternalServerError, "asset_persist_failure"},
		{"customer", checkout.ErrInvalidCustomerData, http.StatusUnprocessableEntity, "invalid_customer"},
		{"database", fmt.Errorf("%w: connection reset", checkout.ErrDatabase), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.checkout.err = tt.err

			rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestCheckout_StockErrorDetails(t *testing.T) {
	f := newFixture(t)
	f.checkout.err = &domain.InsufficientStockError{ProductID: 3, Requested: 2, Available: 0}

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), nil)
	resp := decode[ErrorResponse](t, rec)
	assert.True(t, resp.Retryable)
	assert.Equal(t, int64(3), resp.ProductID)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 0, *resp.Available)
}

func TestCheckout_InvalidBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.checkout.requests)
}

func orderView() *orders.View {
	now := time.Unix(1700000000, 0).UTC()
	return &orders.View{
		Order: &domain.Order{
			ID:            "order-1",
			CustomerID:    "cust-1",
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusCompleted,
			TotalPrice:    domain.Units(1350),
			Items: []domain.OrderItem{{
				ProductID: 1, ProductNameSnapshot: "Mug", Quantity: 1, PriceSnapshot: domain.Units(1000),
				CustomText: "ACME", CustomImage: "custom_1_abc.png",
			}},
		},
		Payments: []*domain.Payment{{TransactionID: "MPESA-1", Status: domain.PaymentStatusCompleted, Amount: domain.Units(1350), PaymentDate: &now}},
	}
}

func TestGetOrder_Access(t *testing.T) {
	f := newFixture(t)
	f.orders.view = orderView()

	rec := f.do(t, http.MethodGet, "/api/v1/orders/order-1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/order-1", nil, f.bearer(t, "cust-2", domain.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/missing", nil, f.guestBearer(t, "cust-1", "order-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/order-1", nil, f.guestBearer(t, "cust-1", "order-7"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/order-1", nil, f.guestBearer(t, "cust-1", "order-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[OrderResponseDTO](t, rec)
	assert.Equal(t, "completed", resp.PaymentStatus)
	assert.Equal(t, "KES", resp.Currency)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "/uploads/customizations/custom_1_abc.png", resp.Items[0].CustomImage)
	require.Len(t, resp.Payments, 1)
	assert.NotNil(t, resp.Payments[0].PaymentDate)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/order-1", nil, f.bearer(t, "ops", domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetryPayment(t *testing.T) {
	f := newFixture(t)
	f.orders.view = orderView()
	f.checkout.result = committed()

	rec := f.do(t, http.MethodPost, "/api/v1/orders/order-1/payments/retry",
		map[string]string{"mpesa_phone": "0712345678"}, f.guestBearer(t, "cust-1", "order-1"))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, f.checkout.retries, 1)
	assert.Equal(t, "order-1", f.checkout.retries[0].OrderID)
	assert.Equal(t, "0712345678", f.checkout.retries[0].MpesaPhone)

	f.checkout.err = checkout.ErrPaymentInProgress
	rec = f.do(t, http.MethodPost, "/api/v1/orders/order-1/payments/retry", nil, f.guestBearer(t, "cust-1", "order-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/orders/order-1/payments/retry", nil, f.guestBearer(t, "cust-2", "order-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, f.checkout.retries, 2)
}

func TestPaymentCallback(t *testing.T) {
	f := newFixture(t)
	f.reconciler.outcome = reconciler.Outcome{
		Payment: &domain.Payment{TransactionID: "MPESA-1", OrderID: "order-1", Status: domain.PaymentStatusCompleted, Amount: domain.Units(3250)},
		Applied: true,
	}

	rec := f.callback(t, map[string]any{"transaction_id": "MPESA-1", "success": true, "amount": 3250}, f.signer.Sign)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[PaymentOutcomeDTO](t, rec)
	assert.True(t, resp.Applied)
	assert.Equal(t, "completed", resp.Status)

	require.Len(t, f.reconciler.events, 1)
	assert.Equal(t, domain.Units(3250), f.reconciler.events[0].Amount)

	f.reconciler.err = fmt.Errorf("%w: MPESA-9", reconciler.ErrPaymentNotFound)
	rec = f.callback(t, map[string]any{"transaction_id": "MPESA-9"}, f.signer.Sign)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.reconciler.err = reconciler.ErrAmountMismatch
	rec = f.callback(t, map[string]any{"transaction_id": "MPESA-1", "amount": 1}, f.signer.Sign)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.reconciler.err = fmt.Errorf("%w: cash", reconciler.ErrOperatorSettled)
	rec = f.callback(t, map[string]any{"transaction_id": "COD-1", "success": true, "amount": 3250}, f.signer.Sign)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, f.reconciler.events, 4)
}

func TestPaymentCallback_RequiresSignature(t *testing.T) {
	f := newFixture(t)
	f.reconciler.outcome = reconciler.Outcome{
		Payment: &domain.Payment{TransactionID: "MPESA-1", Status: domain.PaymentStatusCompleted},
		Applied: true,
	}
	body := map[string]any{"transaction_id": "MPESA-1", "success": true, "amount": 3250}
	forged, err := payment.NewCallbackSigner("guessed-secret")
	require.NoError(t, err)

	for name, sig := range map[string]func([]byte) string{
		"unsigned":     nil,
		"wrong secret": forged.Sign,
		"garbage":      func([]byte) string { return "sha256=not-hex" },
		"other body":   func([]byte) string { return f.signer.Sign([]byte(`{"transaction_id":"MPESA-1"}`)) },
	} {
		rec := f.callback(t, body, sig)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
	assert.Empty(t, f.reconciler.events)

	unverified := NewRouter(RouterDeps{Payments: NewPaymentsHandler(f.reconciler, nil, time.Second, nil), Auth: f.issuer})
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(raw))
	req.Header.Set(payment.SignatureHeader, f.signer.Sign(raw))
	rec := httptest.NewRecorder()
	unverified.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.reconciler.events)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	f.orders.view = orderView()
	f.reconciler.outcome = reconciler.Outcome{
		Payment: &domain.Payment{TransactionID: "COD-1", Status: domain.PaymentStatusCompleted},
		Applied: true,
	}
	admin := f.bearer(t, "ops", domain.RoleAdmin)

	rec := f.do(t, http.MethodPatch, "/api/v1/admin/orders/order-1/status", map[string]string{"status": "processing"},
		f.bearer(t, "cust-1", domain.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/admin/orders/order-1/status", map[string]string{"status": "Cancelled"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusCanceled}, f.orders.updated)

	f.orders.updateErr = fmt.Errorf("%w: canceled -> shipped", orders.ErrInvalidTransition)
	rec = f.do(t, http.MethodPatch, "/api/v1/admin/orders/order-1/status", map[string]string{"status": "shipped"}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/payments/COD-1/reconcile", map[string]bool{"received": true}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"COD-1": true}, f.reconciler.reconciled)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/payments/COD-1/reconcile", map[string]string{}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/payments/COD-1/refund", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"COD-1"}, f.reconciler.refunded)

	f.reconciler.err = reconciler.ErrNotRefundable
	rec = f.do(t, http.MethodPost, "/api/v1/admin/payments/COD-1/refund", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionCart_RequiresHeader(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/v1/session/cart", []map[string]any{{"id": 1, "quantity": 1}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(RouterDeps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	NewRouter(RouterDeps{Health: downPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTracedRequestReusesTraceID(t *testing.T) {
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	NewRouter(RouterDeps{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, traceID, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	req.Header.Set("X-Request-ID", "req-1")
	rec = httptest.NewRecorder()
	NewRouter(RouterDeps{}).ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}
