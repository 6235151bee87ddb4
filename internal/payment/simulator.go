package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"go.uber.org/zap"
)

const (
	DefaultSimulationDelay   = 10 * time.Second
	DefaultSimulationSuccess = 0.9
)

type SimulatorDeps struct {
	Confirmer   Confirmer
	Delay       time.Duration
	SuccessRate float64
	// Roll returns a value in [0, 1). Defaults to math/rand.
	Roll   func() float64
	Logger *zap.Logger
}

// Simulator settles transactions without a real gateway: after Delay each
// transaction completes with probability SuccessRate and fails otherwise.
type Simulator struct {
	confirmer   Confirmer
	delay       time.Duration
	successRate float64
	roll        func() float64
	logger      *zap.Logger

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	// orderID -> transactionID -> cancel
	running map[string]map[string]context.CancelFunc
}

func NewSimulator(deps SimulatorDeps) (*Simulator, error) {
	if deps.Confirmer == nil {
		return nil, errors.New("payment simulator: confirmer is required")
	}
	if deps.SuccessRate < 0 || deps.SuccessRate > 1 {
		return nil, fmt.Errorf("payment simulator: success rate %v outside [0,1]", deps.SuccessRate)
	}
	if deps.Delay < 0 {
		return nil, errors.New("payment simulator: delay cannot be negative")
	}
	roll := deps.Roll
	if roll == nil {
		roll = rand.Float64
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Simulator{
		confirmer:   deps.Confirmer,
		delay:       deps.Delay,
		successRate: deps.SuccessRate,
		roll:        roll,
		logger:      logger.Named("payment_simulator"),
		base:        base,
		stop:        stop,
		running:     make(map[string]map[string]context.CancelFunc),
	}, nil
}

func outcomeFor(roll, successRate float64) domain.PaymentStatus {
	if roll < successRate {
		return domain.PaymentStatusCompleted
	}
	return domain.PaymentStatusFailed
}

func (s *Simulator) Ready(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: simulator stopped", ErrGatewayUnavailable)
	}
	return nil
}

// Settle starts a timer for tx. It returns immediately; the outcome is
// delivered to the Confirmer unless the order is abandoned first.
func (s *Simulator) Settle(_ context.Context, tx PendingTransaction) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: simulator stopped", ErrGatewayUnavailable)
	}
	ctx, cancel := context.WithCancel(s.base)
	if s.running[tx.OrderID] == nil {
		s.running[tx.OrderID] = make(map[string]context.CancelFunc)
	}
	s.running[tx.OrderID][tx.TransactionID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, tx)
	return nil
}

func (s *Simulator) run(ctx context.Context, tx PendingTransaction) {
	defer s.wg.Done()
	defer s.forget(tx.OrderID, tx.TransactionID)

	log := s.logger.With(zap.String("order_id", tx.OrderID), zap.String("transaction_id", tx.TransactionID))

	if err := s.confirmer.Prompted(ctx, tx.TransactionID); err != nil {
		log.Warn("failed to mark payment as processing", zap.Error(err))
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		log.Info("payment simulation abandoned")
		return
	case <-timer.C:
	}

	outcome := outcomeFor(s.roll(), s.successRate)
	ev := CallbackEvent{
		TransactionID: tx.TransactionID,
		Success:       outcome == domain.PaymentStatusCompleted,
		Amount:        tx.Amount,
	}
	if err := s.confirmer.Confirm(ctx, ev); err != nil {
		log.Error("failed to deliver simulated payment outcome", zap.String("outcome", string(outcome)), zap.Error(err))
		return
	}
	log.Info("simulated payment settled", zap.String("outcome", string(outcome)))
}

func (s *Simulator) forget(orderID, transactionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.running[orderID]
	if cancel, ok := txs[transactionID]; ok {
		cancel()
		delete(txs, transactionID)
	}
	if len(txs) == 0 {
		delete(s.running, orderID)
	}
}

// Abandon cancels every running simulation for orderID.
func (s *Simulator) Abandon(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.running[orderID] {
		cancel()
	}
}

// Running reports how many simulations are in flight.
func (s *Simulator) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, txs := range s.running {
		n += len(txs)
	}
	return n
}

// Wait blocks until every started simulation has finished.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// Close cancels outstanding simulations and waits for them to exit.
func (s *Simulator) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}
