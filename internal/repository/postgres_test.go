package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations/postgres",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds.MigrationsDirPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestPostgres_CommitAndSettle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mug := seedProduct(t, repo, "Mug", domain.Units(1000), 1)
	order, err := repo.CommitOrder(ctx, draftFor("pg@example.com", "pg-key", line(mug, 1)))
	require.NoError(t, err)

	_, err = repo.CommitOrder(ctx, draftFor("pg@example.com", "pg-key", line(mug, 1)))
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)

	_, err = repo.CommitOrder(ctx, draftFor("pg@example.com", "", line(mug, 1)))
	var stockErr *domain.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)

	require.NoError(t, repo.InsertPayment(ctx, &domain.Payment{
		OrderID: order.ID, Amount: order.TotalPrice, Method: domain.PaymentMethodMpesa, TransactionID: "MPESA-pg",
	}))
	_, applied, err := repo.ApplyPaymentOutcome(ctx, "MPESA-pg", domain.PaymentStatusCompleted)
	require.NoError(t, err)
	assert.True(t, applied)
	_, applied, err = repo.ApplyPaymentOutcome(ctx, "MPESA-pg", domain.PaymentStatusCompleted)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
}

func TestPostgres_ConcurrentAttemptsOpenOnePayment(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mug := seedProduct(t, repo, "Mug", domain.Units(1000), 1)
	order, err := repo.CommitOrder(ctx, draftFor("race@example.com", "", line(mug, 1)))
	require.NoError(t, err)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		opened  int
		blocked int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.InsertPayment(ctx, &domain.Payment{
				OrderID: order.ID, Amount: order.TotalPrice, Method: domain.PaymentMethodMpesa,
				TransactionID: fmt.Sprintf("MPESA-race-%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrOpenPaymentExists):
				blocked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, attempts-1, blocked)
}
