// Package http is the storefront's JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Payments *PaymentsHandler
	Sessions *SessionHandler
	Auth     *auth.Issuer
	Health   Pinger
	Gatherer prometheus.Gatherer
	// Uploads serves stored customization images under UploadsPath when set.
	Uploads     http.Handler
	UploadsPath string
	Timeout     time.Duration
	Logger      *zap.Logger
}

func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(otelhttp.NewMiddleware("storefront",
		otelhttp.WithPropagators(propagation.TraceContext{}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics"
		}),
	))
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	if deps.Timeout > 0 {
		r.Use(middleware.Timeout(deps.Timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.Ping(r.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.Uploads != nil && deps.UploadsPath != "" {
		prefix := "/" + strings.Trim(deps.UploadsPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", deps.Uploads))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.Authenticate)
		}

		if deps.Checkout != nil {
			r.Post("/checkout", deps.Checkout.PlaceOrder)
		}
		if deps.Sessions != nil {
			r.Route("/session/cart", func(r chi.Router) {
				r.Get("/", deps.Sessions.GetCart)
				r.Put("/", deps.Sessions.SaveCart)
				r.Delete("/", deps.Sessions.ClearCart)
			})
		}
		if deps.Payments != nil {
			r.Post("/payments/callback", deps.Payments.Callback)
		}
		if deps.Orders != nil {
			r.Route("/orders/{order_id}", func(r chi.Router) {
				r.Get("/", deps.Orders.GetOrder)
				r.Post("/payments/retry", deps.Orders.RetryPayment)
			})
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			if deps.Orders != nil {
				r.Patch("/orders/{order_id}/status", deps.Orders.UpdateStatus)
			}
			if deps.Payments != nil {
				r.Post("/payments/{transaction_id}/refund", deps.Payments.Refund)
				r.Post("/payments/{transaction_id}/reconcile", deps.Payments.Reconcile)
			}
		})
	})

	return r
}
