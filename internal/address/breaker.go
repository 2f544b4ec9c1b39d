package address

import (
	"context"

	"github.com/SrFlag/Melos-Company/internal/circuitbreaker"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerLookup fails fast while the address service is unreachable.
type BreakerLookup struct {
	next Lookup
	cb   *gobreaker.CircuitBreaker[domain.Address]
}

func NewBreakerLookup(next Lookup, log zerolog.Logger) *BreakerLookup {
	return &BreakerLookup{
		next: next,
		cb:   circuitbreaker.New[domain.Address]("viacep", log, ErrNotFound, ErrInvalidPostalCode, context.Canceled),
	}
}

func (b *BreakerLookup) Lookup(ctx context.Context, postalCode string) (domain.Address, error) {
	return b.cb.Execute(func() (domain.Address, error) {
		return b.next.Lookup(ctx, postalCode)
	})
}
