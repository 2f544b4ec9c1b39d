package catalog

import (
	"context"
	"testing"

	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
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

func newProduct(name, category string, price string) *domain.Product {
	return &domain.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: category,
		Stock:    10,
	}
}

func TestCreate_AssignsIDSlugAndTimestamps(t *testing.T) {
	repo := setupTestDB(t)
	p := newProduct("Camiseta Básica Preta", "Camisetas", "129.90")
	p.Gallery = []string{"https://cdn/a.png", "https://cdn/b.png"}

	require.NoError(t, repo.Create(context.Background(), p))

	assert.NotZero(t, p.ID)
	assert.Equal(t, "camiseta-basica-preta", p.Slug)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, []string{"https://cdn/a.png", "https://cdn/b.png"}, p.Gallery)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("129.90")))
}

func TestCreate_DuplicateSlug(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("Moletom", "Moletons", "200")))
	err := repo.Create(ctx, newProduct("moletom", "Moletons", "210"))
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestCreate_Validation(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Create(ctx, newProduct("", "x", "10")), ErrInvalidProduct)
	assert.ErrorIs(t, repo.Create(ctx, newProduct("Boné", "x", "0")), ErrInvalidProduct)

	p := newProduct("Boné", "x", "10")
	p.Gallery = []string{"1", "2", "3", "4", "5"}
	assert.ErrorIs(t, repo.Create(ctx, p), ErrInvalidProduct)
}

func TestGetBySlugAndID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	p := newProduct("Calça Cargo", "Calças", "299.00")
	require.NoError(t, repo.Create(ctx, p))

	bySlug, err := repo.GetBySlug(ctx, "calca-cargo")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)
	assert.Equal(t, []string{}, bySlug.Gallery)

	byID, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Calça Cargo", byID.Name)

	_, err = repo.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestList_Filters(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("Camiseta Logo", "Camisetas", "100")))
	require.NoError(t, repo.Create(ctx, newProduct("Camiseta Oversized", "Camisetas", "120")))
	require.NoError(t, repo.Create(ctx, newProduct("Moletom Logo", "Moletons", "250")))

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// newest first
	assert.Equal(t, "Moletom Logo", all[0].Name)

	todos, err := repo.List(ctx, Filter{Category: AllCategories})
	require.NoError(t, err)
	assert.Len(t, todos, 3)

	shirts, err := repo.List(ctx, Filter{Category: "Camisetas"})
	require.NoError(t, err)
	assert.Len(t, shirts, 2)

	logos, err := repo.List(ctx, Filter{Search: "LOGO"})
	require.NoError(t, err)
	assert.Len(t, logos, 2)

	both, err := repo.List(ctx, Filter{Category: "Camisetas", Search: "logo"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Camiseta Logo", both[0].Name)

	limited, err := repo.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestList_Empty(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestUpdate_RegeneratesSlug(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	p := newProduct("Camiseta", "Camisetas", "100")
	require.NoError(t, repo.Create(ctx, p))

	p.Name = "Camiseta Edição Limitada"
	p.Price = decimal.RequireFromString("150")
	p.Badge = "Novo"
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "camiseta-edicao-limitada", got.Slug)
	assert.Equal(t, "Novo", got.Badge)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(150)))
}

func TestUpdate_NotFound(t *testing.T) {
	repo := setupTestDB(t)
	p := newProduct("Fantasma", "x", "10")
	p.ID = 42

	assert.ErrorIs(t, repo.Update(context.Background(), p), ErrProductNotFound)
}

func TestDelete(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	p := newProduct("Boné", "Acessórios", "80")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err := repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrProductNotFound)
}

