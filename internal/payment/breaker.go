package payment

import (
	"context"

	"github.com/SrFlag/Melos-Company/internal/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerClient stops calling the gateway while it keeps failing. Rejected
// preferences are gateway answers and do not open the circuit.
type BreakerClient struct {
	next PreferenceCreator
	cb   *gobreaker.CircuitBreaker[*Preference]
}

func NewBreakerClient(next PreferenceCreator, log zerolog.Logger) *BreakerClient {
	return &BreakerClient{
		next: next,
		cb:   circuitbreaker.New[*Preference]("mercadopago", log, ErrPreferenceRejected, context.Canceled),
	}
}

func (b *BreakerClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	return b.cb.Execute(func() (*Preference, error) {
		return b.next.CreatePreference(ctx, req)
	})
}
