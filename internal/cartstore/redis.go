package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultRedisTTL = 30 * 24 * time.Hour

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisStore(client *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    defaultRedisTTL,
		log:    log.With().Str("component", "cartstore.redis").Logger(),
	}
}

// Get returns ErrCacheMiss when nothing is stored and ErrMalformed when the
// stored value cannot be decoded or breaks the cart rules.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	data, err := r.client.Get(ctx, storageKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartState{}, ErrCacheMiss
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("redis get failed: %w", err)
	}

	var state domain.CartState
	if err2 := json.Unmarshal(data, &state); err2 != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformed, err2)
	}
	if err2 := state.Validate(); err2 != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformed, err2)
	}
	return state, nil
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (domain.CartState, error) {
	state, err := r.Get(ctx, sessionID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, ErrCacheMiss):
		return domain.CartState{}, nil
	case errors.Is(err, ErrMalformed):
		r.log.Warn().Err(err).Str("session_id", sessionID).Msg("discarding unreadable cart")
		return domain.CartState{}, nil
	}
	return domain.CartState{}, err
}

// Save overwrites the stored cart and slides its expiry.
func (r *RedisStore) Save(ctx context.Context, sessionID string, state domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err2 := r.client.Set(ctx, storageKey(sessionID), data, r.ttl).Err(); err2 != nil {
		return fmt.Errorf("redis set failed: %w", err2)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, storageKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
