package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLRepository {
	conn, err := db.Open(&db.Credentials{Driver: db.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, db.DriverSQLite))
	return NewRepository(conn)
}

func newOrder() *domain.Order {
	return &domain.Order{
		IdempotencyKey: uuid.NewString(),
		Buyer:          domain.Buyer{Name: "Ana Souza", Email: "ana@example.com", Phone: "11999990000"},
		Address: domain.Address{
			PostalCode: "01001000", Street: "Praça da Sé", Number: "100",
			District: "Sé", City: "São Paulo", State: "SP",
		},
		TotalValue:    decimal.NewFromInt(200),
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodWhatsApp,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Camiseta", Size: "M", Quantity: 2, Price: decimal.NewFromInt(100), ImageURL: "/img/a.png"},
		},
	}
}

func TestCreate_RecordsOrderItemsAndEvent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	order := newOrder()

	require.NoError(t, repo.Create(ctx, order))
	require.NotZero(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, "Praça da Sé", got.Address.Street)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	events, err := repo.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderCreated, events[0].EventType)

	var payload domain.OrderEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, "ana@example.com", payload.Buyer.Email)
}

func TestCreate_DuplicateKeyReturnsExisting(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newOrder()
	require.NoError(t, repo.Create(ctx, first))

	retry := newOrder()
	retry.IdempotencyKey = first.IdempotencyKey
	err := repo.Create(ctx, retry)

	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.Equal(t, first.ID, retry.ID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// the failed insert must not leave items or events behind
	events, err := repo.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Len(t, all[0].Items, 1)
}

func TestCreate_RejectsEmptyOrder(t *testing.T) {
	repo := setupTestDB(t)
	order := newOrder()
	order.Items = nil

	assert.ErrorIs(t, repo.Create(context.Background(), order), ErrEmptyOrder)
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestList_NewestFirstWithItems(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	a := newOrder()
	b := newOrder()
	b.Items = append(b.Items, domain.OrderItem{ProductID: 2, ProductName: "Boné", Size: "UN", Quantity: 1, Price: decimal.NewFromInt(80)})
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	all, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Len(t, all[0].Items, 2)
	assert.Len(t, all[1].Items, 1)
}

func TestUpdateStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	order := newOrder()
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusShipped))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)

	events, err := repo.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderStatusChanged, events[1].EventType)
}

func TestUpdateStatus_Errors(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 1, "Perdido"), ErrInvalidStatus)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999, domain.OrderStatusPaid), ErrOrderNotFound)
}

func TestMarkPublished(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newOrder()))

	events, err := repo.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkPublished(ctx, events[0].ID))

	events, err = repo.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
