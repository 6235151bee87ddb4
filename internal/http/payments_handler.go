package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/reconciler"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentReconciler interface {
	Apply(ctx context.Context, ev payment.CallbackEvent) (reconciler.Outcome, error)
	Reconcile(ctx context.Context, transactionID string, received bool) (reconciler.Outcome, error)
	Refund(ctx context.Context, transactionID string) (*domain.Payment, error)
}

// CallbackVerifier authenticates a raw callback body against its signature.
type CallbackVerifier interface {
	Verify(body []byte, signature string) error
}

const maxCallbackBody = 64 << 10

type PaymentsHandler struct {
	reconciler PaymentReconciler
	verifier   CallbackVerifier
	timeout    time.Duration
	logger     *zap.Logger
}

// NewPaymentsHandler refuses every gateway callback when verifier is nil.
func NewPaymentsHandler(r PaymentReconciler, verifier CallbackVerifier, timeout time.Duration, logger *zap.Logger) *PaymentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentsHandler{reconciler: r, verifier: verifier, timeout: timeout, logger: logger}
}

type PaymentOutcomeDTO struct {
	TransactionID string       `json:"transaction_id"`
	OrderID       string       `json:"order_id"`
	Status        string       `json:"status"`
	Amount        domain.Money `json:"amount"`
	Applied       bool         `json:"applied"`
	PaymentDate   *time.Time   `json:"payment_date,omitempty"`
}

func outcomeResponse(p *domain.Payment, applied bool) PaymentOutcomeDTO {
	return PaymentOutcomeDTO{
		TransactionID: p.TransactionID,
		OrderID:       p.OrderID,
		Status:        string(p.Status),
		Amount:        p.Amount,
		Applied:       applied,
		PaymentDate:   p.PaymentDate,
	}
}

// POST /api/v1/payments/callback
func (h *PaymentsHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "callback body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}
	if h.verifier == nil || h.verifier.Verify(body, r.Header.Get(payment.SignatureHeader)) != nil {
		h.logger.Warn("rejected unsigned payment callback", zap.String("remote_addr", r.RemoteAddr))
		respondError(w, http.StatusUnauthorized, "invalid_signature", "missing or invalid callback signature")
		return
	}

	var ev payment.CallbackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	out, err := h.reconciler.Apply(ctx, ev)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeResponse(out.Payment, out.Applied))
}

// POST /api/v1/admin/payments/{transaction_id}/reconcile
func (h *PaymentsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	txID := chi.URLParam(r, "transaction_id")
	dto := struct {
		Received *bool `json:"received"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil || dto.Received == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be {\"received\": true|false}")
		return
	}

	out, err := h.reconciler.Reconcile(ctx, txID, *dto.Received)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeResponse(out.Payment, out.Applied))
}

// POST /api/v1/admin/payments/{transaction_id}/refund
func (h *PaymentsHandler) Refund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.reconciler.Refund(ctx, chi.URLParam(r, "transaction_id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeResponse(p, true))
}
