package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
)

const (
	EventOrderCreated  = "order.created"
	EventOrderStatus   = "order.status_changed"
	EventOrderCanceled = "order.canceled"
)

// OrderDraft is everything CommitOrder writes in its single transaction.
// Order.ID, timestamps and item ids are assigned by CommitOrder.
type OrderDraft struct {
	Customer CustomerDraft
	Order    domain.Order
}

type orderCreatedPayload struct {
	OrderID       string               `json:"order_id"`
	CustomerID    string               `json:"customer_id"`
	Email         string               `json:"email"`
	Total         domain.Money         `json:"total"`
	Currency      string               `json:"currency"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Items         []orderEventItem     `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
}

type orderEventItem struct {
	ProductID int64        `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	Price     domain.Money `json:"price"`
}

// CommitOrder resolves the customer, inserts the order and its items, takes
// stock for every line and records an order.created outbox event. Either all
// of it is committed or none of it is.
func (r *Repository) CommitOrder(ctx context.Context, draft *OrderDraft) (*domain.Order, error) {
	now := time.Now().UTC()
	order := draft.Order
	order.ID = uuid.NewString()
	order.Status = domain.OrderStatusPending
	order.PaymentStatus = domain.PaymentStatusPending
	order.CreatedAt, order.UpdatedAt = now, now
	order.Items = make([]domain.OrderItem, len(draft.Order.Items))
	copy(order.Items, draft.Order.Items)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		customerID, err := resolveCustomer(ctx, tx, draft.Customer, now)
		if err != nil {
			return err
		}
		order.CustomerID = customerID

		if err := insertOrder(ctx, tx, &order); err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.ID = uuid.NewString()
			item.OrderID = order.ID
			if err := insertOrderItem(ctx, tx, item, i); err != nil {
				return err
			}
			if err := decrementStock(ctx, tx, item.ProductID, item.Quantity, now); err != nil {
				return err
			}
		}

		payload := orderCreatedPayload{
			OrderID:       order.ID,
			CustomerID:    order.CustomerID,
			Email:         draft.Customer.Email,
			Total:         order.TotalPrice,
			Currency:      domain.Currency,
			PaymentMethod: order.PaymentMethod,
			CreatedAt:     now,
		}
		for _, item := range order.Items {
			payload.Items = append(payload.Items, orderEventItem{
				ProductID: item.ProductID,
				Name:      item.ProductNameSnapshot,
				Quantity:  item.Quantity,
				Price:     item.PriceSnapshot,
			})
		}
		return insertOutboxEvent(ctx, tx, order.ID, EventOrderCreated, payload, now)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (id, customer_id, subtotal, tax, shipping, total_price, status, payment_status,
	              payment_method, shipping_option, address, city, state, postal_code, country, notes,
	              idempotency_key, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := tx.ExecContext(ctx, query,
		o.ID,
		o.CustomerID,
		o.Subtotal,
		o.Tax,
		o.Shipping,
		o.TotalPrice,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.ShippingOption,
		o.ShippingAddress.Line,
		o.ShippingAddress.City,
		o.ShippingAddress.State,
		o.ShippingAddress.PostalCode,
		o.ShippingAddress.Country,
		o.Notes,
		nullString(o.IdempotencyKey),
		o.CreatedAt,
		o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func insertOrderItem(ctx context.Context, tx *sql.Tx, it *domain.OrderItem, lineNo int) error {
	query := `INSERT INTO order_items (id, order_id, line_no, product_id, product_name, quantity, price,
	              custom_text, custom_color, custom_size, custom_image)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.ExecContext(ctx, query,
		it.ID,
		it.OrderID,
		lineNo,
		it.ProductID,
		it.ProductNameSnapshot,
		it.Quantity,
		it.PriceSnapshot,
		it.CustomText,
		it.CustomColor,
		it.CustomSize,
		it.CustomImage)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

const orderColumns = `id, customer_id, subtotal, tax, shipping, total_price, status, payment_status,
	payment_method, shipping_option, address, city, state, postal_code, country, notes,
	idempotency_key, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o   domain.Order
		key sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.Subtotal,
		&o.Tax,
		&o.Shipping,
		&o.TotalPrice,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.ShippingOption,
		&o.ShippingAddress.Line,
		&o.ShippingAddress.City,
		&o.ShippingAddress.State,
		&o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country,
		&o.Notes,
		&key,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	o.IdempotencyKey = key.String
	return &o, err
}

// GetOrder loads an order with its items.
func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	items, err := r.getOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *Repository) FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE idempotency_key = $1`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}
	return r.GetOrder(ctx, id)
}

func (r *Repository) getOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price,
		        custom_text, custom_color, custom_size, custom_image
		 FROM order_items WHERE order_id = $1 ORDER BY line_no`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductNameSnapshot,
			&it.Quantity,
			&it.PriceSnapshot,
			&it.CustomText,
			&it.CustomColor,
			&it.CustomSize,
			&it.CustomImage,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *Repository) CountOrderItems(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count order items: %w", err)
	}
	return n, nil
}

// UpdateOrderStatus moves an order from one status to another only if it is
// still in from.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := casOrderStatus(ctx, tx, id, from, to, now); err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, id, EventOrderStatus, map[string]any{
			"order_id": id,
			"from":     from,
			"to":       to,
			"at":       now,
		}, now)
	})
}

// CancelOrder cancels the order, returns its stock and fails any payment
// attempt that has not settled yet.
func (r *Repository) CancelOrder(ctx context.Context, id string, from domain.OrderStatus) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := casOrderStatus(ctx, tx, id, from, domain.OrderStatusCanceled, now); err != nil {
			return err
		}
		if err := restockItems(ctx, tx, id, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = $1, updated_at = $2 WHERE order_id = $3 AND status IN ($4, $5)`,
			domain.PaymentStatusFailed, now, id, domain.PaymentStatusPending, domain.PaymentStatusProcessing); err != nil {
			return fmt.Errorf("fail open payments: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status IN ($4, $5)`,
			domain.PaymentStatusFailed, now, id, domain.PaymentStatusPending, domain.PaymentStatusProcessing); err != nil {
			return fmt.Errorf("update order payment status: %w", err)
		}
		return insertOutboxEvent(ctx, tx, id, EventOrderCanceled, map[string]any{
			"order_id": id,
			"from":     from,
			"at":       now,
		}, now)
	})
}

func casOrderStatus(ctx context.Context, tx *sql.Tx, id string, from, to domain.OrderStatus, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, now, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// TransitionPaymentStatus sets the order's payment status to to when it is
// currently from. It returns ErrStatusConflict otherwise.
func (r *Repository) TransitionPaymentStatus(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func marshalPayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return b, nil
}
