package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SrFlag/Melos-Company/internal/address"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/orders"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultCallTimeout = 15 * time.Second
	defaultAttemptTTL  = 24 * time.Hour
	compensateTimeout  = 5 * time.Second
)

// OrderRecorder is the slice of the order repository checkout needs.
type OrderRecorder interface {
	Create(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

// CartSession is the cart owner checkout reads from and settles.
type CartSession interface {
	ID() string
	Snapshot() domain.CartState
	// RemoveOrdered takes the ordered lines out of the cart and leaves
	// anything added since the snapshot in place.
	RemoveOrdered(ctx context.Context, ordered domain.CartState)
}

type Result struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	OrderID        int64                  `json:"order_id"`
	State          domain.CheckoutState   `json:"state"`
	Mode           domain.FulfillmentMode `json:"mode"`
	Total          decimal.Decimal        `json:"total_value"`
	Handoff
}

type Option func(*Builder)

func WithCallTimeout(d time.Duration) Option {
	return func(b *Builder) { b.callTimeout = d }
}

func WithAttemptTTL(d time.Duration) Option {
	return func(b *Builder) { b.attempts.ttl = d }
}

// Builder turns a cart and a checkout form into a recorded order and hands it
// off through the configured fulfillment.
type Builder struct {
	orders      OrderRecorder
	fulfillment Fulfillment
	addresses   address.Lookup
	attempts    *attemptRegistry
	callTimeout time.Duration
	log         zerolog.Logger
}

func NewBuilder(rec OrderRecorder, fulfillment Fulfillment, addresses address.Lookup, log zerolog.Logger, opts ...Option) (*Builder, error) {
	if rec == nil {
		return nil, errors.New("checkout: order recorder is required")
	}
	if fulfillment == nil {
		return nil, errors.New("checkout: fulfillment is required")
	}

	b := &Builder{
		orders:      rec,
		fulfillment: fulfillment,
		addresses:   addresses,
		attempts:    newAttemptRegistry(defaultAttemptTTL),
		callTimeout: defaultCallTimeout,
		log:         log.With().Str("component", "checkout").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Builder) Mode() domain.FulfillmentMode {
	return b.fulfillment.Mode()
}

// Begin starts a new attempt with a fresh idempotency key. The attempt is
// bound to the first session that submits it.
func (b *Builder) Begin() *Attempt {
	return b.attempts.begin("")
}

// BeginFor starts a new attempt already bound to sessionID.
func (b *Builder) BeginFor(sessionID string) *Attempt {
	return b.attempts.begin(sessionID)
}

// Attempt resolves the attempt for key. Unknown keys start a new attempt.
func (b *Builder) Attempt(key string) (*Attempt, error) {
	return b.attempts.resolve(key)
}

// Status returns the state of a known attempt. Attempts claimed by another
// session are reported as not found.
func (b *Builder) Status(key, sessionID string) (domain.CheckoutState, error) {
	a, ok := b.attempts.get(key)
	if !ok || !a.OwnedBy(sessionID) {
		return "", ErrAttemptNotFound
	}
	return a.State(), nil
}

// Submit runs one checkout attempt. Validation problems come back as a
// *ValidationError with the attempt still idle. Remote failures leave the
// attempt failed and the cart untouched; the same attempt may be submitted
// again. The ordered lines leave the cart only after the order is recorded and
// handed off. An attempt belongs to the session that first submits it.
func (b *Builder) Submit(ctx context.Context, a *Attempt, session CartSession, form Form) (*Result, error) {
	mode := b.fulfillment.Mode()

	a.mu.Lock()
	if err := a.claim(session.ID()); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	switch a.state {
	case domain.CheckoutStateRedirecting:
		res := *a.result
		a.mu.Unlock()
		return &res, nil
	case domain.CheckoutStateSubmitting, domain.CheckoutStateAwaitingRemoteConfirmation:
		a.mu.Unlock()
		return nil, ErrAttemptInProgress
	case domain.CheckoutStateFailed:
		_ = a.transition(domain.CheckoutStateIdle)
	}

	form = form.normalized()
	snapshot := session.Snapshot()
	if err := form.validate(mode, snapshot); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if err := a.transition(domain.CheckoutStateSubmitting); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.mu.Unlock()

	log := b.log.With().Str("idempotency_key", a.Key).Str("mode", string(mode)).Logger()

	intent := domain.NewCheckoutIntent(a.Key, mode, form.Buyer, form.Address, snapshot)
	order, intent, err := b.recordOrder(ctx, intent, log)
	if errors.Is(err, ErrIdempotencyKeyUsed) {
		return nil, b.fail(a, err, log)
	}
	if err != nil {
		return nil, b.fail(a, fmt.Errorf("%w: %w", ErrOrderNotRecorded, err), log)
	}
	log = log.With().Int64("order_id", order.ID).Logger()

	if err := a.set(domain.CheckoutStateAwaitingRemoteConfirmation); err != nil {
		return nil, b.fail(a, err, log)
	}

	hctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	handoff, err := b.fulfillment.Handoff(hctx, intent, order)
	cancel()
	if err != nil {
		b.compensate(ctx, order.ID, log)
		return nil, b.fail(a, fmt.Errorf("%w: %w", ErrHandoffFailed, err), log)
	}

	session.RemoveOrdered(ctx, snapshot)

	res := &Result{
		IdempotencyKey: a.Key,
		OrderID:        order.ID,
		State:          domain.CheckoutStateRedirecting,
		Mode:           mode,
		Total:          order.TotalValue,
		Handoff:        handoff,
	}

	a.mu.Lock()
	err = a.transition(domain.CheckoutStateRedirecting)
	a.result = res
	a.lastErr = nil
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Info().Str("total", order.TotalValue.String()).Msg("checkout handed off")
	out := *res
	return &out, nil
}

// recordOrder creates the order for intent. A key that was already used yields
// the stored order when it is still open and holds the same lines; the intent
// is then rebuilt from it so the handoff matches what was recorded. Any other
// stored order fails with ErrIdempotencyKeyUsed.
func (b *Builder) recordOrder(ctx context.Context, intent domain.CheckoutIntent, log zerolog.Logger) (*domain.Order, domain.CheckoutIntent, error) {
	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	order := intent.Order()
	err := b.orders.Create(cctx, order)
	if err == nil {
		return order, intent, nil
	}
	if !errors.Is(err, orders.ErrDuplicateOrder) {
		return nil, intent, err
	}

	if !reusable(order, intent) {
		log.Warn().Int64("order_id", order.ID).Str("status", string(order.Status)).Msg("idempotency key already used for another order")
		return nil, intent, ErrIdempotencyKeyUsed
	}

	log.Info().Int64("order_id", order.ID).Msg("reusing order recorded for idempotency key")
	if order.Status == domain.OrderStatusCancelled {
		// a previous handoff failed and cancelled it; this retry reopens it
		if err := b.orders.UpdateStatus(cctx, order.ID, domain.OrderStatusPending); err != nil {
			return nil, intent, fmt.Errorf("reopen order %d: %w", order.ID, err)
		}
		order.Status = domain.OrderStatusPending
	}
	return order, intentFromOrder(intent, order), nil
}

// compensate cancels an order whose handoff failed so it does not linger as pending.
func (b *Builder) compensate(ctx context.Context, orderID int64, log zerolog.Logger) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if err := b.orders.UpdateStatus(cctx, orderID, domain.OrderStatusCancelled); err != nil {
		log.Error().Err(err).Msg("failed to cancel order after handoff failure")
		return
	}
	log.Warn().Msg("order cancelled after handoff failure")
}

func (b *Builder) fail(a *Attempt, err error, log zerolog.Logger) error {
	a.mu.Lock()
	if terr := a.transition(domain.CheckoutStateFailed); terr != nil {
		log.Error().Err(terr).Str("state", a.state.String()).Msg("unexpected checkout state")
		a.state = domain.CheckoutStateFailed
	}
	a.lastErr = err
	a.mu.Unlock()

	log.Error().Err(err).Msg("checkout attempt failed")
	return err
}

// LookupAddress autofills an address from a postal code. Failures are not
// errors for the buyer; found is false and the fields stay manual.
func (b *Builder) LookupAddress(ctx context.Context, postalCode string) (domain.Address, bool) {
	if b.addresses == nil {
		return domain.Address{}, false
	}

	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	addr, err := b.addresses.Lookup(cctx, postalCode)
	if err != nil {
		b.log.Debug().Err(err).Str("postal_code", postalCode).Msg("address lookup failed")
		return domain.Address{}, false
	}
	return addr, true
}

// reusable reports whether a stored order can stand in for intent: it was never
// paid or shipped and it holds exactly the intent's lines.
func reusable(order *domain.Order, intent domain.CheckoutIntent) bool {
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusCancelled {
		return false
	}
	if len(order.Items) != len(intent.Lines) {
		return false
	}

	type lineKey struct {
		productID int64
		size      string
	}
	want := make(map[lineKey]domain.CartLine, len(intent.Lines))
	for _, l := range intent.Lines {
		want[lineKey{l.ProductID, l.Size}] = l
	}
	for _, it := range order.Items {
		l, ok := want[lineKey{it.ProductID, it.Size}]
		if !ok || l.Quantity != it.Quantity || !l.UnitPrice.Equal(it.Price) {
			return false
		}
	}
	return true
}

func intentFromOrder(intent domain.CheckoutIntent, order *domain.Order) domain.CheckoutIntent {
	lines := make([]domain.CartLine, len(order.Items))
	for i, it := range order.Items {
		lines[i] = domain.CartLine{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			UnitPrice: it.Price,
			ImageURL:  it.ImageURL,
			Size:      it.Size,
			Quantity:  it.Quantity,
		}
	}
	intent.Lines = lines
	intent.Total = order.TotalValue
	intent.Buyer = order.Buyer
	intent.Address = order.Address
	return intent
}
