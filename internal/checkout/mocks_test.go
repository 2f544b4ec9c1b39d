package checkout

import (
	"context"
	"sync"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/orders"
	"github.com/SrFlag/Melos-Company/internal/payment"
)

type MockOrders struct {
	mu        sync.Mutex
	CreateErr error
	UpdateErr error
	NextID    int64
	Created   []*domain.Order
	Statuses  map[int64]domain.OrderStatus
	byKey     map[string]*domain.Order
}

func NewMockOrders() *MockOrders {
	return &MockOrders{
		NextID:   100,
		Statuses: make(map[int64]domain.OrderStatus),
		byKey:    make(map[string]*domain.Order),
	}
}

func (m *MockOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if existing, ok := m.byKey[order.IdempotencyKey]; ok {
		*order = *existing
		order.Status = m.Statuses[existing.ID]
		return orders.ErrDuplicateOrder
	}
	m.NextID++
	order.ID = m.NextID
	stored := *order
	m.byKey[order.IdempotencyKey] = &stored
	m.Created = append(m.Created, &stored)
	m.Statuses[order.ID] = order.Status
	return nil
}

func (m *MockOrders) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Statuses[id] = status
	return nil
}

func (m *MockOrders) status(id int64) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Statuses[id]
}

type MockPreferences struct {
	Err      error
	Requests []payment.PreferenceRequest
	block    chan struct{}
}

func (m *MockPreferences) CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	m.Requests = append(m.Requests, req)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &payment.Preference{ID: "pref-1", InitPoint: "https://mp.example/init/pref-1"}, nil
}

type MockSession struct {
	mu        sync.Mutex
	SessionID string
	State     domain.CartState
	Cleared   int
}

func (m *MockSession) ID() string {
	if m.SessionID == "" {
		return "sess-1"
	}
	return m.SessionID
}

func (m *MockSession) Snapshot() domain.CartState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State.Clone()
}

func (m *MockSession) RemoveOrdered(_ context.Context, ordered domain.CartState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range ordered.Lines {
		if i := m.State.Find(o.ProductID, o.Size); i >= 0 {
			m.State.Lines[i].Quantity -= o.Quantity
			if m.State.Lines[i].Quantity <= 0 {
				m.State.Lines = append(m.State.Lines[:i], m.State.Lines[i+1:]...)
			}
		}
	}
	m.Cleared++
}

// add appends a line the way a concurrent request would.
func (m *MockSession) add(line domain.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.State.Lines = append(m.State.Lines, line)
}

type MockAddressLookup struct {
	Addr domain.Address
	Err  error
}

func (m *MockAddressLookup) Lookup(context.Context, string) (domain.Address, error) {
	return m.Addr, m.Err
}
