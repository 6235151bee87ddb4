package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	// MaxFailures consecutive errors open the circuit.
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
}

// BreakerSettler guards a Settler with a circuit breaker. While the circuit is
// open, Ready and Settle fail fast with ErrGatewayUnavailable.
type BreakerSettler struct {
	next Settler
	cb   *gobreaker.CircuitBreaker[struct{}]
}

var _ Settler = (*BreakerSettler)(nil)

func NewBreakerSettler(next Settler, cfg BreakerConfig, logger *zap.Logger) (*BreakerSettler, error) {
	if next == nil {
		return nil, errors.New("payment: breaker needs a settler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	log := logger.Named("settler_breaker")
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "payment-settler",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed", zap.String("breaker", name),
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &BreakerSettler{next: next, cb: cb}, nil
}

func (b *BreakerSettler) Ready(ctx context.Context) error {
	return b.call(func() error { return b.next.Ready(ctx) })
}

func (b *BreakerSettler) Settle(ctx context.Context, tx PendingTransaction) error {
	return b.call(func() error { return b.next.Settle(ctx, tx) })
}

func (b *BreakerSettler) Abandon(orderID string) {
	b.next.Abandon(orderID)
}

func (b *BreakerSettler) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerSettler) call(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return err
}
