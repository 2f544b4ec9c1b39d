package cartstore

import (
	"context"
	"errors"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const cacheWriteTimeout = time.Second

// TieredStore writes through to a durable store and a cache. Loads read the
// cache first and fall back to the durable store; cache errors never fail a call.
type TieredStore struct {
	durable Store
	cache   Cache
	sfg     singleflight.Group // collapses concurrent misses for one session
	log     zerolog.Logger
}

func NewTieredStore(durable Store, cache Cache, log zerolog.Logger) *TieredStore {
	return &TieredStore{
		durable: durable,
		cache:   cache,
		log:     log.With().Str("component", "cartstore.tiered").Logger(),
	}
}

func (t *TieredStore) Load(ctx context.Context, sessionID string) (domain.CartState, error) {
	v, err, _ := t.sfg.Do(sessionID, func() (interface{}, error) {
		state, err := t.cache.Get(ctx, sessionID)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			t.log.Warn().Err(err).Str("session_id", sessionID).Msg("cache get failed")
		}

		state, err = t.durable.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		t.fillCache(sessionID, state)
		return state, nil
	})
	if err != nil {
		return domain.CartState{}, err
	}

	// singleflight shares one value between callers
	return v.(domain.CartState).Clone(), nil
}

func (t *TieredStore) Save(ctx context.Context, sessionID string, state domain.CartState) error {
	if err := t.durable.Save(ctx, sessionID, state); err != nil {
		return err
	}
	t.fillCache(sessionID, state)
	return nil
}

func (t *TieredStore) Clear(ctx context.Context, sessionID string) error {
	if err := t.durable.Clear(ctx, sessionID); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := t.cache.Clear(cctx, sessionID); err != nil {
		t.log.Warn().Err(err).Str("session_id", sessionID).Msg("cache clear failed")
	}
	return nil
}

func (t *TieredStore) fillCache(sessionID string, state domain.CartState) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := t.cache.Save(ctx, sessionID, state); err != nil {
		t.log.Warn().Err(err).Str("session_id", sessionID).Msg("cache set failed")
	}
}
