package domain

// CheckoutState is the per-attempt state of a checkout submission.
type CheckoutState string

const (
	CheckoutStateIdle                       CheckoutState = "IDLE"
	CheckoutStateSubmitting                 CheckoutState = "SUBMITTING"
	CheckoutStateAwaitingRemoteConfirmation CheckoutState = "AWAITING_REMOTE_CONFIRMATION"
	CheckoutStateRedirecting                CheckoutState = "REDIRECTING"
	CheckoutStateFailed                     CheckoutState = "FAILED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:                       {CheckoutStateSubmitting},
	CheckoutStateSubmitting:                 {CheckoutStateAwaitingRemoteConfirmation, CheckoutStateFailed},
	CheckoutStateAwaitingRemoteConfirmation: {CheckoutStateRedirecting, CheckoutStateFailed},
	CheckoutStateFailed:                     {CheckoutStateIdle},
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateRedirecting
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
