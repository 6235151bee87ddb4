package repository

import (
	"errors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrEmailRegistered         = errors.New("email already belongs to a customer record")
	ErrOpenPaymentExists       = errors.New("order already has a payment attempt in progress")
	ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")
	ErrDuplicateTransaction    = errors.New("payment with this transaction id already exists")
	ErrStatusConflict          = errors.New("status changed concurrently or transition not allowed")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
