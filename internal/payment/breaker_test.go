package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SrFlag/Melos-Company/internal/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockCreator struct {
	calls int
	err   error
}

func (m *MockCreator) CreatePreference(context.Context, PreferenceRequest) (*Preference, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Preference{ID: "pref-1", InitPoint: "https://mp.example/init"}, nil
}

func TestBreakerClient_PassesThrough(t *testing.T) {
	next := &MockCreator{}
	client := NewBreakerClient(next, zerolog.Nop())

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{OrderID: 1})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
}

func TestBreakerClient_OpensOnGatewayOutage(t *testing.T) {
	next := &MockCreator{err: errors.New("dial tcp: connection refused")}
	client := NewBreakerClient(next, zerolog.Nop())

	for i := 0; i < 10; i++ {
		_, _ = client.CreatePreference(context.Background(), PreferenceRequest{OrderID: 1})
	}

	_, err := client.CreatePreference(context.Background(), PreferenceRequest{OrderID: 1})
	assert.True(t, circuitbreaker.IsOpen(err))
	assert.Equal(t, 5, next.calls)
}

func TestBreakerClient_RejectionsKeepCircuitClosed(t *testing.T) {
	next := &MockCreator{err: fmt.Errorf("%w: status 400", ErrPreferenceRejected)}
	client := NewBreakerClient(next, zerolog.Nop())

	for i := 0; i < 10; i++ {
		_, err := client.CreatePreference(context.Background(), PreferenceRequest{OrderID: 1})
		require.ErrorIs(t, err, ErrPreferenceRejected)
	}
	assert.Equal(t, 10, next.calls)
}
