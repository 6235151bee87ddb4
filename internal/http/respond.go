package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/assets"
	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"github.com/Hassan1910/Terral-sub000/internal/orders"
	"github.com/Hassan1910/Terral-sub000/internal/pricing"
	"github.com/Hassan1910/Terral-sub000/internal/reconciler"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	ProductID int64             `json:"product_id,omitempty"`
	Available *int              `json:"available,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain errors to HTTP responses. Anything
// unrecognised is logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		verr     *checkout.ValidationError
		stockErr *domain.InsufficientStockError
		notFound *cart.ProductNotFoundError
	)
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "some fields are invalid",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
	case errors.As(err, &stockErr):
		available := stockErr.Available
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:     stockErr.Error(),
			Code:      "insufficient_stock",
			Retryable: true,
			ProductID: stockErr.ProductID,
			Available: &available,
		})
	case errors.As(err, &notFound):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:     notFound.Error(),
			Code:      "product_not_found",
			ProductID: notFound.ProductID,
		})
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidItem):
		respondError(w, http.StatusUnprocessableEntity, "invalid_cart", err.Error())
	case errors.Is(err, cart.ErrCartNotFound):
		respondError(w, http.StatusUnprocessableEntity, "invalid_cart", "no cart found for this session")
	case errors.Is(err, pricing.ErrUnknownShippingOption), errors.Is(err, pricing.ErrInvalidInput):
		respondError(w, http.StatusUnprocessableEntity, "invalid_pricing_input", err.Error())
	case errors.Is(err, assets.ErrInvalidAsset):
		respondError(w, http.StatusUnprocessableEntity, "invalid_asset", err.Error())
	case errors.Is(err, assets.ErrPersistFailure):
		logger.Error("customization image could not be stored", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "asset_persist_failure", "could not store the customization image")
	case errors.Is(err, checkout.ErrInvalidCustomerData):
		respondError(w, http.StatusUnprocessableEntity, "invalid_customer", err.Error())
	case errors.Is(err, checkout.ErrOrderNotFound), errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, reconciler.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "not_found", "payment not found")
	case errors.Is(err, checkout.ErrPaymentInProgress),
		errors.Is(err, checkout.ErrAlreadyPaid),
		errors.Is(err, checkout.ErrOrderClosed),
		errors.Is(err, orders.ErrConflict),
		errors.Is(err, reconciler.ErrNotRefundable):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, reconciler.ErrAmountMismatch),
		errors.Is(err, reconciler.ErrManualNotAllowed),
		errors.Is(err, reconciler.ErrOperatorSettled):
		respondError(w, http.StatusUnprocessableEntity, "not_allowed", err.Error())
	case errors.Is(err, reconciler.ErrInvalidCallback):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "you cannot access this order")
	default:
		logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
