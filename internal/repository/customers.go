package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CustomerDraft identifies who is placing an order. ID is set for an
// authenticated customer; otherwise the record is found or created by Email.
type CustomerDraft struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	CreateAccount bool
	PasswordHash  string
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (r *Repository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return getCustomer(ctx, r.db, `WHERE id = $1`, id)
}

func (r *Repository) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return getCustomer(ctx, r.db, `WHERE email = $1`, email)
}

// CreateCustomer inserts an account directly, used for seeding operators.
func (r *Repository) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, phone, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.Role, c.PasswordHash, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s already registered: %w", c.Email, err)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCustomer(ctx context.Context, q queryRower, where string, arg any) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := q.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone, role, password_hash, created_at FROM users `+where, arg).
		Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.Role, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

// resolveCustomer returns the id the order belongs to. An anonymous
// checkout may only reuse a guest record; an email owned by an account, or
// an account request for an email already on file, is ErrEmailRegistered.
func resolveCustomer(ctx context.Context, tx *sql.Tx, d CustomerDraft, now time.Time) (string, error) {
	if d.ID != "" {
		c, err := getCustomer(ctx, tx, `WHERE id = $1`, d.ID)
		if err != nil {
			return "", err
		}
		return c.ID, nil
	}

	existing, err := getCustomer(ctx, tx, `WHERE email = $1`, d.Email)
	switch {
	case err == nil:
		return reuseGuest(existing, d)
	case !errors.Is(err, ErrCustomerNotFound):
		return "", err
	}

	role := domain.RoleGuest
	hash := ""
	if d.CreateAccount && d.PasswordHash != "" {
		role = domain.RoleCustomer
		hash = d.PasswordHash
	}
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, phone, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email) DO NOTHING`,
		id, d.Email, d.FirstName, d.LastName, d.Phone, role, hash, now); err != nil {
		return "", fmt.Errorf("insert customer: %w", err)
	}

	c, err := getCustomer(ctx, tx, `WHERE email = $1`, d.Email)
	if err != nil {
		return "", err
	}
	if c.ID != id {
		// a concurrent checkout registered the email first
		return reuseGuest(c, d)
	}
	return c.ID, nil
}

func reuseGuest(c *domain.Customer, d CustomerDraft) (string, error) {
	if c.Role != domain.RoleGuest || d.CreateAccount {
		return "", ErrEmailRegistered
	}
	return c.ID, nil
}
