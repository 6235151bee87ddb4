package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"go.uber.org/zap"
)

const maxCartItems = 100

type SessionHandler struct {
	sessions CartSessions
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSessionHandler(sessions CartSessions, timeout time.Duration, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, timeout: timeout, logger: logger}
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" || len(id) > 128 {
		respondError(w, http.StatusBadRequest, "missing_session_id", sessionHeader+" header is required")
		return "", false
	}
	return id, true
}

// GET /api/v1/session/cart
func (h *SessionHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	raw, err := h.sessions.Get(ctx, id)
	if errors.Is(err, cart.ErrCartNotFound) {
		respondJSON(w, http.StatusOK, cart.RawCart{})
		return
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

// PUT /api/v1/session/cart
func (h *SessionHandler) SaveCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)
	var raw cart.RawCart
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "cart must be a JSON array of items")
		return
	}
	if len(raw) > maxCartItems {
		respondError(w, http.StatusUnprocessableEntity, "invalid_cart", "too many items in cart")
		return
	}
	if err := h.sessions.Save(ctx, id, raw); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/session/cart
func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Clear(ctx, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
