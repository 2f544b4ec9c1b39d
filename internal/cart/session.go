package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SrFlag/Melos-Company/internal/cartstore"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const persistTimeout = 2 * time.Second

var (
	ErrNilStore       = errors.New("cart store is required")
	ErrEmptySessionID = errors.New("session id is required")
)

// Session owns the cart of one client. It is the only code that mutates the
// cart state; every mutation is written through to the store.
type Session struct {
	id    string
	store cartstore.Store
	log   zerolog.Logger

	mu        sync.Mutex
	state     domain.CartState
	panelOpen bool
}

// View is a read-only snapshot of a session for rendering.
type View struct {
	SessionID string            `json:"session_id"`
	Lines     []domain.CartLine `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	Count     int               `json:"count"`
	PanelOpen bool              `json:"panel_open"`
}

// NewSession builds a session and hydrates it once from the store. A failed
// load is logged and leaves the cart empty.
func NewSession(ctx context.Context, id string, store cartstore.Store, log zerolog.Logger) (*Session, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if id == "" {
		return nil, ErrEmptySessionID
	}

	s := &Session{
		id:    id,
		store: store,
		log:   log.With().Str("session_id", id).Logger(),
	}

	state, err := store.Load(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load cart, starting empty")
		state = domain.CartState{}
	}
	s.state = state
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// AddLine adds one unit of product in size. An existing (product, size) line
// is incremented, otherwise a new line snapshots the product's display fields.
// The panel is opened either way.
func (s *Session) AddLine(ctx context.Context, product domain.Product, size string) domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	size = domain.NormalizeSize(size)

	var line domain.CartLine
	if i := s.state.Find(product.ID, size); i >= 0 {
		s.state.Lines[i].Quantity++
		line = s.state.Lines[i]
	} else {
		line = domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			ImageURL:  product.DisplayImage(),
			Size:      size,
			Quantity:  1,
		}
		s.state.Lines = append(s.state.Lines, line)
	}

	s.panelOpen = true
	s.persist(ctx)
	return line
}

// RemoveLine drops the (productID, size) line. Unknown pairs are a no-op.
func (s *Session) RemoveLine(ctx context.Context, productID int64, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.Find(productID, size)
	if i < 0 {
		return false
	}

	s.state.Lines = append(s.state.Lines[:i], s.state.Lines[i+1:]...)
	s.persist(ctx)
	return true
}

// Clear empties the cart and removes the stored entry.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.CartState{}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Clear(pctx, s.id); err != nil {
		s.log.Error().Err(err).Msg("failed to clear stored cart")
	}
}

// RemoveOrdered subtracts the ordered quantities from the cart. Lines added
// after ordered was snapshotted survive; a cart left empty is cleared from the
// store.
func (s *Session) RemoveOrdered(ctx context.Context, ordered domain.CartState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered.Lines {
		i := s.state.Find(o.ProductID, o.Size)
		if i < 0 {
			continue
		}
		s.state.Lines[i].Quantity -= o.Quantity
		if s.state.Lines[i].Quantity <= 0 {
			s.state.Lines = append(s.state.Lines[:i], s.state.Lines[i+1:]...)
		}
	}

	if !s.state.IsEmpty() {
		s.persist(ctx)
		return
	}

	s.state = domain.CartState{}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Clear(pctx, s.id); err != nil {
		s.log.Error().Err(err).Msg("failed to clear stored cart")
	}
}

func (s *Session) OpenPanel() {
	s.mu.Lock()
	s.panelOpen = true
	s.mu.Unlock()
}

func (s *Session) ClosePanel() {
	s.mu.Lock()
	s.panelOpen = false
	s.mu.Unlock()
}

func (s *Session) TogglePanel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panelOpen = !s.panelOpen
	return s.panelOpen
}

func (s *Session) PanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

// Snapshot returns a copy of the cart state.
func (s *Session) Snapshot() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Lines() []domain.CartLine {
	return s.Snapshot().Lines
}

func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total()
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Count()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.state.Clone().Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return View{
		SessionID: s.id,
		Lines:     lines,
		Total:     s.state.Total(),
		Count:     s.state.Count(),
		PanelOpen: s.panelOpen,
	}
}

// persist writes the current state; the caller holds mu. Failures are logged
// and never surface to the shopper.
func (s *Session) persist(ctx context.Context) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Save(pctx, s.id, s.state.Clone()); err != nil {
		s.log.Error().Err(err).Msg("failed to save cart")
	}
}
