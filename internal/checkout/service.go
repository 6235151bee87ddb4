// Package checkout commits a resolved cart as an order and starts payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/assets"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/metrics"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/pricing"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"go.uber.org/zap"
)

type Store interface {
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	CommitOrder(ctx context.Context, draft *repository.OrderDraft) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	InsertPayment(ctx context.Context, p *domain.Payment) error
	ListPaymentsByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error)
	TransitionPaymentStatus(ctx context.Context, orderID string, from, to domain.PaymentStatus) error
	ApplyPaymentOutcome(ctx context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.Payment, bool, error)
}

type CartResolver interface {
	Resolve(ctx context.Context, raw cart.RawCart) ([]domain.CartLineItem, error)
}

type Pricer interface {
	Price(items []domain.CartLineItem, option domain.ShippingOption) (pricing.Totals, error)
}

type AssetStore interface {
	Persist(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, name string) error
}

type Gateways interface {
	Get(method domain.PaymentMethod) (payment.Gateway, error)
}

type ServiceDeps struct {
	Store    Store
	Resolver CartResolver
	Pricing  Pricer
	Assets   AssetStore
	Gateways Gateways
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Clock    func() time.Time
}

type Service struct {
	store    Store
	resolver CartResolver
	pricing  Pricer
	assets   AssetStore
	gateways Gateways
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps ServiceDeps) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("checkout service: store is required")
	case deps.Resolver == nil:
		return nil, errors.New("checkout service: cart resolver is required")
	case deps.Pricing == nil:
		return nil, errors.New("checkout service: pricing engine is required")
	case deps.Assets == nil:
		return nil, errors.New("checkout service: asset store is required")
	case deps.Gateways == nil:
		return nil, errors.New("checkout service: payment gateways are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    deps.Store,
		resolver: deps.Resolver,
		pricing:  deps.Pricing,
		assets:   deps.Assets,
		gateways: deps.Gateways,
		metrics:  deps.Metrics,
		logger:   logger.Named("checkout"),
		now:      now,
	}, nil
}

// PaymentState describes what happened to payment initiation after commit.
type PaymentState string

const (
	PaymentInitiated   PaymentState = "initiated"
	PaymentUnavailable PaymentState = "unavailable"
	PaymentFailed      PaymentState = "failed"
	PaymentUnchanged   PaymentState = "unchanged"
)

type Result struct {
	Order        *domain.Order
	Transaction  *payment.PendingTransaction
	PaymentState PaymentState
	// Guidance tells the buyer what to do next, for example how to retry.
	Guidance string
	Replayed bool
}

// PlaceOrder validates req, commits the order with its items and stock in
// one transaction and then initiates payment. A failure before commit leaves
// nothing behind; a payment failure after commit never removes the order.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	res, err := s.placeOrder(ctx, req)
	s.metrics.ObserveCheckout(s.now().Sub(start).Seconds())
	s.metrics.Checkout(outcomeLabel(res, err))
	return res, err
}

func (s *Service) placeOrder(ctx context.Context, req Request) (*Result, error) {
	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	if v.IdempotencyKey != "" {
		if res, err := s.replay(ctx, v.IdempotencyKey); err == nil || !errors.Is(err, repository.ErrOrderNotFound) {
			return res, err
		}
	}

	lines, err := s.resolver.Resolve(ctx, v.Cart)
	if err != nil {
		return nil, err
	}
	totals, err := s.pricing.Price(lines, v.shipping)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if v.CreateAccount && v.CustomerID == "" {
		if passwordHash, err = repository.HashPassword(v.Password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCustomerData, err)
		}
	}

	items, written, err := s.persistAssets(ctx, lines)
	if err != nil {
		return nil, err
	}

	draft := &repository.OrderDraft{
		Customer: repository.CustomerDraft{
			ID:            v.CustomerID,
			Email:         v.email,
			FirstName:     v.FirstName,
			LastName:      v.LastName,
			Phone:         v.Phone,
			CreateAccount: v.CreateAccount,
			PasswordHash:  passwordHash,
		},
		Order: domain.Order{
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Shipping:        totals.Shipping,
			TotalPrice:      totals.Total,
			PaymentMethod:   v.method,
			ShippingOption:  v.shipping,
			ShippingAddress: v.Address,
			Notes:           v.Notes,
			IdempotencyKey:  v.IdempotencyKey,
			Items:           items,
		},
	}

	order, err := s.store.CommitOrder(ctx, draft)
	if err != nil {
		s.discardAssets(written)
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			return nil, err
		case errors.Is(err, repository.ErrDuplicateIdempotencyKey):
			return s.replay(ctx, v.IdempotencyKey)
		case errors.Is(err, repository.ErrCustomerNotFound):
			return nil, fmt.Errorf("%w: %v", ErrInvalidCustomerData, err)
		case errors.Is(err, repository.ErrEmailRegistered):
			return nil, fmt.Errorf("%w: this email is already registered, sign in or check out as a guest", ErrInvalidCustomerData)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		}
		s.logger.Error("order commit failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.logger.Info("order committed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.TotalPrice.String()),
		zap.String("payment_method", string(order.PaymentMethod)),
	)

	res := &Result{Order: order}
	if err := s.initiatePayment(ctx, res, v.gateway, v.params); err != nil {
		s.logger.Warn("payment attempt not opened", zap.String("order_id", order.ID), zap.Error(err))
	}
	return res, nil
}

func (s *Service) replay(ctx context.Context, key string) (*Result, error) {
	order, err := s.store.FindOrderByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	s.logger.Info("duplicate checkout submission", zap.String("idempotency_key", key), zap.String("order_id", order.ID))

	res := &Result{Order: order, Replayed: true, PaymentState: PaymentUnchanged}
	payments, err := s.store.ListPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if n := len(payments); n > 0 {
		last := payments[n-1]
		res.Transaction = &payment.PendingTransaction{
			TransactionID: last.TransactionID,
			OrderID:       last.OrderID,
			Method:        last.Method,
			Amount:        last.Amount,
			Status:        last.Status,
			Phone:         last.Phone,
		}
	}
	return res, nil
}

// persistAssets writes inline customization images and returns order items
// carrying the stored names. written lists only names created by this call.
func (s *Service) persistAssets(ctx context.Context, lines []domain.CartLineItem) ([]domain.OrderItem, []string, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	var written []string
	for _, line := range lines {
		item := domain.OrderItem{
			ProductID:           line.ProductID,
			ProductNameSnapshot: line.Name,
			Quantity:            line.Quantity,
			PriceSnapshot:       line.UnitPrice,
		}
		if c := line.Customization; !c.IsZero() {
			item.CustomText = c.Text
			item.CustomColor = c.Color
			item.CustomSize = c.Size
			if c.ImageRef != "" {
				name, err := s.assets.Persist(ctx, c.ImageRef)
				if err != nil {
					s.discardAssets(written)
					return nil, nil, err
				}
				if assets.IsInline(c.ImageRef) {
					written = append(written, name)
				}
				item.CustomImage = name
			}
		}
		items = append(items, item)
	}
	return items, written, nil
}

func (s *Service) discardAssets(names []string) {
	for _, name := range names {
		// the request context may already be done
		if err := s.assets.Delete(context.Background(), name); err != nil {
			s.logger.Warn("failed to remove orphaned asset", zap.String("name", name), zap.Error(err))
		}
	}
}

// initiatePayment runs after commit. It fills res with the transaction or
// with guidance, compensating by failing the order's payment status when the
// gateway rejects the attempt. Settlement starts only once the attempt row
// is inserted, and the store admits one open attempt per order; losing that
// race returns ErrPaymentInProgress and leaves the order untouched.
func (s *Service) initiatePayment(ctx context.Context, res *Result, gw payment.Gateway, params payment.Params) error {
	order := res.Order
	log := s.logger.With(zap.String("order_id", order.ID), zap.String("method", string(gw.Method())))

	tx, err := gw.Initiate(ctx, payment.InitiateRequest{OrderID: order.ID, Amount: order.TotalPrice, Params: params})
	if errors.Is(err, payment.ErrGatewayUnavailable) {
		log.Warn("payment gateway unavailable", zap.Error(err))
		res.PaymentState = PaymentUnavailable
		res.Guidance = retryGuidance(gw.Method())
		return nil
	}
	if err != nil {
		log.Error("payment initiation failed", zap.Error(err))
		s.failPayment(ctx, res)
		return nil
	}

	p := &domain.Payment{
		OrderID:       order.ID,
		Amount:        tx.Amount,
		Method:        tx.Method,
		Status:        domain.PaymentStatusPending,
		TransactionID: tx.TransactionID,
		Phone:         tx.Phone,
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		if errors.Is(err, repository.ErrOpenPaymentExists) {
			log.Info("another payment attempt is already open", zap.String("transaction_id", tx.TransactionID))
			res.PaymentState = PaymentUnchanged
			return ErrPaymentInProgress
		}
		log.Error("failed to record payment", zap.String("transaction_id", tx.TransactionID), zap.Error(err))
		s.failPayment(ctx, res)
		return nil
	}

	if activator, ok := gw.(payment.Activator); ok {
		if err := activator.Activate(ctx, tx); err != nil {
			log.Error("failed to start payment settlement", zap.String("transaction_id", tx.TransactionID), zap.Error(err))
			if _, _, err := s.store.ApplyPaymentOutcome(ctx, tx.TransactionID, domain.PaymentStatusFailed); err != nil {
				log.Error("failed to mark payment failed", zap.Error(err))
			}
			order.PaymentStatus = domain.PaymentStatusFailed
			res.PaymentState = PaymentFailed
			res.Guidance = retryGuidance(gw.Method())
			return nil
		}
	}

	log.Info("payment initiated", zap.String("transaction_id", tx.TransactionID))
	res.Transaction = &tx
	res.PaymentState = PaymentInitiated
	res.Guidance = tx.Instructions
	return nil
}

func (s *Service) failPayment(ctx context.Context, res *Result) {
	err := s.store.TransitionPaymentStatus(ctx, res.Order.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed)
	if err != nil {
		s.logger.Error("failed to mark order payment failed", zap.String("order_id", res.Order.ID), zap.Error(err))
	} else {
		res.Order.PaymentStatus = domain.PaymentStatusFailed
	}
	res.PaymentState = PaymentFailed
	res.Guidance = retryGuidance(res.Order.PaymentMethod)
}

func retryGuidance(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentMethodMpesa:
		return "We could not reach M-Pesa. Your order is saved; retry the payment from your order page in a few minutes."
	case domain.PaymentMethodCard:
		return "Card payments are temporarily unavailable. Your order is saved; retry the payment from your order page."
	default:
		return "Your order is saved. Retry the payment from your order page."
	}
}

func outcomeLabel(res *Result, err error) string {
	var (
		verr     *ValidationError
		stockErr *domain.InsufficientStockError
	)
	switch {
	case err == nil && res != nil && res.Replayed:
		return "replayed"
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, assets.ErrInvalidAsset), errors.Is(err, assets.ErrPersistFailure):
		return "asset_error"
	default:
		return "error"
	}
}
