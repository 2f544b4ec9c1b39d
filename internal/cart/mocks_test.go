package cart

import (
	"context"
	"sync"

	"github.com/SrFlag/Melos-Company/internal/domain"
)

// MockStore is a hand-written in-memory cartstore.Store.
type MockStore struct {
	mu      sync.Mutex
	data    map[string]domain.CartState
	saves   int
	clears  int
	loadErr error
	saveErr error
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]domain.CartState)}
}

func (m *MockStore) Load(_ context.Context, sessionID string) (domain.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.CartState{}, m.loadErr
	}
	return m.data[sessionID].Clone(), nil
}

func (m *MockStore) Save(_ context.Context, sessionID string, state domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[sessionID] = state.Clone()
	return nil
}

func (m *MockStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[sessionID]
	return ok
}
