package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/SrFlag/Melos-Company/internal/cart"
	"github.com/SrFlag/Melos-Company/internal/cartstore"
	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/orders"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	mr      *miniredis.Miniredis
	store   *cartstore.RedisStore
	orders  *orders.SQLRepository
	session *cart.Session
}

func setupStack(t *testing.T) *stack {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cartstore.NewRedisStore(client, zerolog.Nop())

	conn, err := db.Open(&db.Credentials{Driver: db.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(conn, db.DriverSQLite))

	session, err := cart.NewSession(context.Background(), "sess-e2e", store, zerolog.Nop())
	require.NoError(t, err)

	session.AddLine(context.Background(), domain.Product{ID: 1, Name: "Camiseta", Price: decimal.NewFromInt(100)}, "M")
	session.AddLine(context.Background(), domain.Product{ID: 1, Name: "Camiseta", Price: decimal.NewFromInt(100)}, "M")

	return &stack{mr: mr, store: store, orders: orders.NewRepository(conn), session: session}
}

func TestEndToEnd_SuccessfulCheckoutClearsCart(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	require.True(t, s.mr.Exists("@melos-cart:sess-e2e"))

	b, err := NewBuilder(s.orders, NewMessageHandoff("5511999999999"), nil, zerolog.Nop())
	require.NoError(t, err)

	res, err := b.Submit(ctx, b.Begin(), s.session, validForm())
	require.NoError(t, err)

	order, err := s.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.True(t, order.TotalValue.Equal(decimal.NewFromInt(200)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Empty(t, s.session.Lines())
	assert.False(t, s.mr.Exists("@melos-cart:sess-e2e"))

	reloaded, err := s.store.Load(ctx, "sess-e2e")
	require.NoError(t, err)
	assert.True(t, reloaded.IsEmpty())
}

type failingRecorder struct{}

func (failingRecorder) Create(context.Context, *domain.Order) error {
	return errors.New("remote rejected")
}

func (failingRecorder) UpdateStatus(context.Context, int64, domain.OrderStatus) error {
	return nil
}

func TestEndToEnd_RemoteRejectionKeepsCart(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	b, err := NewBuilder(failingRecorder{}, NewMessageHandoff("5511999999999"), nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = b.Submit(ctx, b.Begin(), s.session, validForm())
	require.Error(t, err)

	lines := s.session.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, s.mr.Exists("@melos-cart:sess-e2e"))

	all, err := s.orders.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEndToEnd_HostedRedirectFailureCancelsRecordedOrder(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	b, err := NewBuilder(s.orders, NewHostedRedirect(&MockPreferences{Err: errors.New("gateway down")}, "https://melos.example"), nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = b.Submit(ctx, b.Begin(), s.session, validForm())
	require.ErrorIs(t, err, ErrHandoffFailed)

	all, err := s.orders.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.OrderStatusCancelled, all[0].Status)
	assert.Len(t, s.session.Lines(), 1)
}

func TestEndToEnd_ReusedKeyAfterPaymentKeepsNewCart(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	first, err := NewBuilder(s.orders, NewMessageHandoff("5511999999999"), nil, zerolog.Nop())
	require.NoError(t, err)
	a := first.Begin()
	res, err := first.Submit(ctx, a, s.session, validForm())
	require.NoError(t, err)
	require.NoError(t, s.orders.UpdateStatus(ctx, res.OrderID, domain.OrderStatusPaid))

	s.session.AddLine(ctx, domain.Product{ID: 2, Name: "Jaqueta", Price: decimal.NewFromInt(300)}, "G")

	second, err := NewBuilder(s.orders, NewMessageHandoff("5511999999999"), nil, zerolog.Nop())
	require.NoError(t, err)
	retry, err := second.Attempt(a.Key)
	require.NoError(t, err)

	_, err = second.Submit(ctx, retry, s.session, validForm())
	require.ErrorIs(t, err, ErrIdempotencyKeyUsed)

	lines := s.session.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Jaqueta", lines[0].Name)
	assert.True(t, s.mr.Exists("@melos-cart:sess-e2e"))

	order, err := s.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
}
