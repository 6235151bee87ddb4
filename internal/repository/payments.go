package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
)

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

type paymentEventPayload struct {
	OrderID       string               `json:"order_id"`
	TransactionID string               `json:"transaction_id"`
	Method        domain.PaymentMethod `json:"method"`
	Status        domain.PaymentStatus `json:"status"`
	Amount        domain.Money         `json:"amount"`
	At            time.Time            `json:"at"`
}

func (r *Repository) InsertPayment(ctx context.Context, p *domain.Payment) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, amount, method, status, transaction_id, phone, payment_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.TransactionID, p.Phone, p.PaymentDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return r.paymentConflict(ctx, p.TransactionID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// paymentConflict tells a reused transaction id apart from a second open
// attempt on the same order.
func (r *Repository) paymentConflict(ctx context.Context, transactionID string) error {
	_, err := getPayment(ctx, r.db, transactionID)
	switch {
	case err == nil:
		return ErrDuplicateTransaction
	case errors.Is(err, ErrPaymentNotFound):
		return ErrOpenPaymentExists
	default:
		return fmt.Errorf("insert payment: %w", err)
	}
}

const paymentColumns = `id, order_id, amount, method, status, transaction_id, phone, payment_date, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	var (
		p    domain.Payment
		paid sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.Phone,
		&paid,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if paid.Valid {
		t := paid.Time
		p.PaymentDate = &t
	}
	return &p, err
}

func (r *Repository) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return getPayment(ctx, r.db, transactionID)
}

func getPayment(ctx context.Context, q queryRower, transactionID string) (*domain.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return p, nil
}

// ListPaymentsByOrder returns every attempt for an order, oldest first.
func (r *Repository) ListPaymentsByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return payments, nil
}

// ApplyPaymentOutcome settles a pending or processing payment. The payment
// row is guarded by its current status, so only one caller can apply an
// outcome; later callers get applied=false and nothing is written.
func (r *Repository) ApplyPaymentOutcome(ctx context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.Payment, bool, error) {
	if outcome != domain.PaymentStatusCompleted && outcome != domain.PaymentStatusFailed {
		return nil, false, fmt.Errorf("outcome %q is not terminal", outcome)
	}

	var (
		payment *domain.Payment
		applied bool
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = $1, payment_date = $2, updated_at = $3
			 WHERE transaction_id = $4 AND status IN ($5, $6)`,
			outcome, now, now, transactionID, domain.PaymentStatusPending, domain.PaymentStatusProcessing)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		payment, err = getPayment(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		applied = true

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status IN ($4, $5)`,
			outcome, now, payment.OrderID, domain.PaymentStatusPending, domain.PaymentStatusProcessing); err != nil {
			return fmt.Errorf("update order payment status: %w", err)
		}

		eventType := EventPaymentFailed
		if outcome == domain.PaymentStatusCompleted {
			eventType = EventPaymentCompleted
			if _, err := tx.ExecContext(ctx,
				`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
				domain.OrderStatusProcessing, now, payment.OrderID, domain.OrderStatusPending); err != nil {
				return fmt.Errorf("advance order status: %w", err)
			}
		}

		return insertOutboxEvent(ctx, tx, payment.OrderID, eventType, paymentEventPayload{
			OrderID:       payment.OrderID,
			TransactionID: transactionID,
			Method:        payment.Method,
			Status:        outcome,
			Amount:        payment.Amount,
			At:            now,
		}, now)
	})
	if err != nil {
		return nil, false, err
	}
	return payment, applied, nil
}

// MarkPaymentProcessing records that the customer has been prompted. It is a
// no-op unless the payment is still pending.
func (r *Repository) MarkPaymentProcessing(ctx context.Context, transactionID string) (bool, error) {
	var applied bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = $1, updated_at = $2 WHERE transaction_id = $3 AND status = $4`,
			domain.PaymentStatusProcessing, now, transactionID, domain.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		applied = true

		payment, err := getPayment(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status = $4`,
			domain.PaymentStatusProcessing, now, payment.OrderID, domain.PaymentStatusPending); err != nil {
			return fmt.Errorf("update order payment status: %w", err)
		}
		return nil
	})
	return applied, err
}

// RefundPayment moves a completed payment and its order to refunded.
func (r *Repository) RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = $1, updated_at = $2 WHERE transaction_id = $3 AND status = $4`,
			domain.PaymentStatusRefunded, now, transactionID, domain.PaymentStatusCompleted)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		payment, err = getPayment(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStatusConflict
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3 AND payment_status = $4`,
			domain.PaymentStatusRefunded, now, payment.OrderID, domain.PaymentStatusCompleted); err != nil {
			return fmt.Errorf("update order payment status: %w", err)
		}
		return insertOutboxEvent(ctx, tx, payment.OrderID, EventPaymentRefunded, paymentEventPayload{
			OrderID:       payment.OrderID,
			TransactionID: transactionID,
			Method:        payment.Method,
			Status:        domain.PaymentStatusRefunded,
			Amount:        payment.Amount,
			At:            now,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}
