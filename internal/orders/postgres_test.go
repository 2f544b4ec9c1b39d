package orders

import (
	"context"
	"testing"
	"time"

	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *SQLRepository {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("melos"),
		postgres.WithUsername("melos"),
		postgres.WithPassword("melos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := db.Open(&db.Credentials{
		Driver:   db.DriverPostgres,
		Host:     host,
		Port:     port.Int(),
		User:     "melos",
		Password: "melos",
		DBName:   "melos",
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, db.DriverPostgres))
	return NewRepository(conn)
}

func TestPostgres_CreateAndDuplicate(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	order := newOrder()
	require.NoError(t, repo.Create(ctx, order))

	retry := newOrder()
	retry.IdempotencyKey = order.IdempotencyKey
	assert.ErrorIs(t, repo.Create(ctx, retry), ErrDuplicateOrder)
	assert.Equal(t, order.ID, retry.ID)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid))
	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	assert.Len(t, got.Items, 1)
}
