// Package reconciler applies payment outcomes reported by gateways or
// operators. Every outcome is applied at most once per transaction.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/metrics"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Store interface {
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	ApplyPaymentOutcome(ctx context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.Payment, bool, error)
	MarkPaymentProcessing(ctx context.Context, transactionID string) (bool, error)
	RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
}

// Outcome reports the payment after a callback. Applied is false when the
// payment had already been settled and nothing changed.
type Outcome struct {
	Payment *domain.Payment
	Applied bool
}

// DefaultApplyTimeout bounds one shared settlement round trip.
const DefaultApplyTimeout = 10 * time.Second

type Reconciler struct {
	store        Store
	metrics      *metrics.Metrics
	logger       *zap.Logger
	group        singleflight.Group
	applyTimeout time.Duration
}

var _ payment.Confirmer = (*Reconciler)(nil)

func New(store Store, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, metrics: m, logger: logger.Named("reconciler"), applyTimeout: DefaultApplyTimeout}
}

// Apply settles the gateway payment named by ev. Concurrent calls for the
// same transaction share one database round trip. Cash on delivery and bank
// transfer payments only settle through Reconcile.
func (r *Reconciler) Apply(ctx context.Context, ev payment.CallbackEvent) (Outcome, error) {
	txID := strings.TrimSpace(ev.TransactionID)
	if txID == "" {
		return Outcome{}, fmt.Errorf("%w: transaction_id is required", ErrInvalidCallback)
	}

	out, shared, err := r.shared(ctx, txID, func(ctx context.Context) (Outcome, error) {
		return r.apply(ctx, txID, ev.Outcome(), &ev.Amount)
	})
	if err != nil {
		return Outcome{}, err
	}
	if shared {
		r.logger.Debug("callback collapsed with a concurrent duplicate", zap.String("transaction_id", txID))
	}
	return out, nil
}

// shared runs fn once per transaction among concurrent callers. The work runs
// detached from any single caller's cancellation, bounded by applyTimeout;
// a caller whose ctx ends stops waiting without aborting it for the others.
func (r *Reconciler) shared(ctx context.Context, txID string, fn func(context.Context) (Outcome, error)) (Outcome, bool, error) {
	ch := r.group.DoChan(txID, func() (any, error) {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.applyTimeout)
		defer cancel()
		return fn(wctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome{}, res.Shared, res.Err
		}
		return res.Val.(Outcome), res.Shared, nil
	case <-ctx.Done():
		return Outcome{}, false, ctx.Err()
	}
}

// Reconcile records an operator's confirmation for a cash on delivery or
// bank transfer payment.
func (r *Reconciler) Reconcile(ctx context.Context, transactionID string, received bool) (Outcome, error) {
	p, err := r.lookup(ctx, transactionID)
	if err != nil {
		return Outcome{}, err
	}
	if !p.Method.OperatorSettled() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrManualNotAllowed, p.Method)
	}
	outcome := domain.PaymentStatusFailed
	if received {
		outcome = domain.PaymentStatusCompleted
	}
	out, _, err := r.shared(ctx, transactionID, func(ctx context.Context) (Outcome, error) {
		return r.apply(ctx, transactionID, outcome, nil)
	})
	return out, err
}

// apply settles txID. A non-nil amount marks a gateway callback, which must
// match the payment and may not settle an operator-confirmed method.
func (r *Reconciler) apply(ctx context.Context, txID string, outcome domain.PaymentStatus, amount *domain.Money) (Outcome, error) {
	log := r.logger.With(zap.String("transaction_id", txID), zap.String("outcome", string(outcome)))

	p, err := r.lookup(ctx, txID)
	if err != nil {
		log.Warn("callback for unknown payment")
		return Outcome{}, err
	}
	if amount != nil && p.Method.OperatorSettled() {
		log.Warn("gateway callback for operator-confirmed payment", zap.String("method", string(p.Method)))
		r.metrics.PaymentEvent("rejected_callback", false)
		return Outcome{}, fmt.Errorf("%w: %s", ErrOperatorSettled, p.Method)
	}
	if amount != nil && *amount != p.Amount {
		log.Warn("callback amount mismatch",
			zap.String("expected", p.Amount.String()),
			zap.String("received", amount.String()))
		r.metrics.PaymentEvent("amount_mismatch", false)
		return Outcome{}, fmt.Errorf("%w: expected %s, got %s", ErrAmountMismatch, p.Amount, amount)
	}
	if p.Status.IsTerminal() {
		r.metrics.PaymentEvent(string(outcome), false)
		log.Info("payment already settled", zap.String("status", string(p.Status)))
		return Outcome{Payment: p}, nil
	}

	updated, applied, err := r.store.ApplyPaymentOutcome(ctx, txID, outcome)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return Outcome{}, ErrPaymentNotFound
		}
		log.Error("failed to apply payment outcome", zap.Error(err))
		return Outcome{}, fmt.Errorf("apply payment outcome: %w", err)
	}
	r.metrics.PaymentEvent(string(outcome), applied)
	if applied {
		log.Info("payment settled", zap.String("order_id", updated.OrderID))
	}
	return Outcome{Payment: updated, Applied: applied}, nil
}

func (r *Reconciler) lookup(ctx context.Context, txID string) (*domain.Payment, error) {
	p, err := r.store.GetPaymentByTransactionID(ctx, txID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, txID)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

// Refund moves a completed payment to refunded.
func (r *Reconciler) Refund(ctx context.Context, transactionID string) (*domain.Payment, error) {
	p, err := r.store.RefundPayment(ctx, transactionID)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, transactionID)
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, ErrNotRefundable
	case err != nil:
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	r.logger.Info("payment refunded", zap.String("transaction_id", transactionID), zap.String("order_id", p.OrderID))
	r.metrics.PaymentEvent(string(domain.PaymentStatusRefunded), true)
	return p, nil
}

// Prompted marks a pending payment as processing once the customer has been
// asked to authorise it.
func (r *Reconciler) Prompted(ctx context.Context, transactionID string) error {
	if _, err := r.store.MarkPaymentProcessing(ctx, transactionID); err != nil {
		return fmt.Errorf("mark payment processing: %w", err)
	}
	return nil
}

// Confirm lets a settler deliver its outcome through Apply.
func (r *Reconciler) Confirm(ctx context.Context, ev payment.CallbackEvent) error {
	_, err := r.Apply(ctx, ev)
	return err
}
