package cartstore

import (
	"context"
	"errors"

	"github.com/SrFlag/Melos-Company/internal/domain"
)

// Store persists one CartState per client session.
//
// Load never fails because of malformed stored data; it falls back to an empty
// cart. Only transport errors are returned.
type Store interface {
	Load(ctx context.Context, sessionID string) (domain.CartState, error)
	Save(ctx context.Context, sessionID string, state domain.CartState) error
	Clear(ctx context.Context, sessionID string) error
}

// Cache is a Store tier that can tell a miss apart from an empty cart.
type Cache interface {
	Store
	Get(ctx context.Context, sessionID string) (domain.CartState, error)
}

var (
	ErrCacheMiss    = errors.New("cart cache miss")
	ErrCartNotFound = errors.New("cart not found")
	ErrMalformed    = errors.New("malformed cart data")
)

const keyPrefix = "@melos-cart:"

func storageKey(sessionID string) string {
	return keyPrefix + sessionID
}
