package cart

import (
	"context"
	"sync"
	"time"

	"github.com/SrFlag/Melos-Company/internal/cartstore"
	"github.com/rs/zerolog"
)

const maxSweepInterval = time.Minute

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps the live sessions of the process. Sessions idle longer than
// idleTTL are dropped from memory; their carts stay in the store.
type Registry struct {
	store   cartstore.Store
	idleTTL time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(store cartstore.Store, idleTTL time.Duration, log zerolog.Logger) (*Registry, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Registry{
		store:    store,
		idleTTL:  idleTTL,
		log:      log.With().Str("component", "cart.registry").Logger(),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}, nil
}

// Get returns the live session for id, hydrating it from the store on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}

	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.session, nil
	}
	r.mu.Unlock()

	// hydrate outside the lock so one slow load does not stall other sessions
	s, err := NewSession(ctx, id, r.store, r.log)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		return e.session, nil
	}
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle since before now-idleTTL and returns how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug().Int("evicted", n).Msg("evicted idle cart sessions")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Registry) sweepInterval() time.Duration {
	interval := r.idleTTL / 2
	if interval <= 0 || interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	return interval
}
