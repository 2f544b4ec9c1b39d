package cartstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, zerolog.Nop()), mr
}

func sampleCart() domain.CartState {
	return domain.CartState{Lines: []domain.CartLine{
		{ProductID: 1, Name: "Camiseta Melos", UnitPrice: decimal.NewFromInt(100), ImageURL: domain.DefaultImageURL, Size: "M", Quantity: 2},
		{ProductID: 7, Name: "Moletom", UnitPrice: decimal.RequireFromString("249.90"), ImageURL: "/img/moletom.png", Size: "G", Quantity: 1},
	}}
}

func TestRedisStore_SaveThenLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleCart()))
	assert.True(t, mr.Exists("@melos-cart:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, int64(7), got.Lines[1].ProductID)
	assert.True(t, got.Total().Equal(decimal.RequireFromString("449.90")))
}

func TestRedisStore_SaveSetsTTL(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Save(context.Background(), "s1", sampleCart()))
	assert.Equal(t, 30*24*time.Hour, mr.TTL("@melos-cart:s1"))
}

func TestRedisStore_LoadMissingIsEmpty(t *testing.T) {
	store, _ := setupTestRedis(t)

	got, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_LoadMalformedFailsOpen(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("@melos-cart:s1", "{not json"))

	got, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	_, err = store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRedisStore_LoadRuleBreakingCartFailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"zero quantity", `{"items":[{"id":1,"price":"100","size":"M","quantity":0}]}`},
		{"negative quantity", `{"items":[{"id":1,"price":"100","size":"M","quantity":-2}]}`},
		{"negative price", `{"items":[{"id":1,"price":"-5","size":"M","quantity":1}]}`},
		{"empty size", `{"items":[{"id":1,"price":"100","size":" ","quantity":1}]}`},
		{"duplicate pair", `{"items":[{"id":1,"price":"100","size":"M","quantity":1},{"id":1,"price":"100","size":" M ","quantity":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := setupTestRedis(t)
			require.NoError(t, mr.Set("@melos-cart:s1", tt.value))

			got, err := store.Load(context.Background(), "s1")
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())

			_, err = store.Get(context.Background(), "s1")
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRedisStore_ClearThenLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleCart()))
	require.NoError(t, store.Clear(ctx, "s1"))
	assert.False(t, mr.Exists("@melos-cart:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisStore_StoredShape(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, store.Save(context.Background(), "s1", sampleCart()))

	raw, err := mr.Get("@melos-cart:s1")
	require.NoError(t, err)

	var decoded struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded.Items, 2)
	assert.Equal(t, "M", decoded.Items[0]["size"])
	assert.Equal(t, float64(2), decoded.Items[0]["quantity"])
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Load(context.Background(), "s1")
	assert.Error(t, err)
}
