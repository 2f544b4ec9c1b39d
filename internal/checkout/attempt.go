package checkout

import (
	"sync"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/google/uuid"
)

// Attempt is one checkout try. Its idempotency key travels with every remote
// call so a resubmission never records a second order.
type Attempt struct {
	Key       string
	CreatedAt time.Time

	mu        sync.Mutex
	sessionID string
	state     domain.CheckoutState
	result    *Result
	lastErr   error
}

func newAttempt(key, sessionID string, now time.Time) *Attempt {
	return &Attempt{Key: key, CreatedAt: now, sessionID: sessionID, state: domain.CheckoutStateIdle}
}

// claim binds the attempt to sessionID on first use and rejects any other
// session afterwards; the caller holds mu.
func (a *Attempt) claim(sessionID string) error {
	if a.sessionID == "" {
		a.sessionID = sessionID
		return nil
	}
	if a.sessionID != sessionID {
		return ErrAttemptForeign
	}
	return nil
}

// OwnedBy reports whether sessionID may read or submit the attempt. An
// unclaimed attempt is open to anyone.
func (a *Attempt) OwnedBy(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID == "" || a.sessionID == sessionID
}

func (a *Attempt) State() domain.CheckoutState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the error of the last failed submission, if any.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// transition moves to next; the caller holds mu.
func (a *Attempt) transition(next domain.CheckoutState) error {
	if !domain.CanTransitionTo(a.state, next) {
		return ErrIllegalTransition
	}
	a.state = next
	return nil
}

func (a *Attempt) set(next domain.CheckoutState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(next)
}

type attemptRegistry struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
	ttl      time.Duration
	now      func() time.Time
}

func newAttemptRegistry(ttl time.Duration) *attemptRegistry {
	return &attemptRegistry{
		attempts: make(map[string]*Attempt),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *attemptRegistry) begin(sessionID string) *Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	a := newAttempt(uuid.NewString(), sessionID, r.now())
	r.attempts[a.Key] = a
	return a
}

// resolve returns the attempt for key, registering it when the client minted
// the key itself.
func (r *attemptRegistry) resolve(key string) (*Attempt, error) {
	if _, err := uuid.Parse(key); err != nil {
		return nil, ErrInvalidIdempotency
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.attempts[key]; ok {
		return a, nil
	}
	r.pruneLocked()
	a := newAttempt(key, "", r.now())
	r.attempts[key] = a
	return a, nil
}

func (r *attemptRegistry) get(key string) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[key]
	return a, ok
}

func (r *attemptRegistry) pruneLocked() {
	cutoff := r.now().Add(-r.ttl)
	for k, a := range r.attempts {
		if a.CreatedAt.Before(cutoff) {
			delete(r.attempts, k)
		}
	}
}
