package checkout

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrAttemptInProgress  = errors.New("checkout attempt is already being submitted")
	ErrAttemptNotFound    = errors.New("checkout attempt not found")
	ErrOrderNotRecorded   = errors.New("order could not be recorded")
	ErrHandoffFailed      = errors.New("order handoff failed")
	ErrInvalidIdempotency = errors.New("idempotency key must be a uuid")
	ErrIdempotencyKeyUsed = errors.New("idempotency key was already used for a different order")
	ErrAttemptForeign     = errors.New("checkout attempt belongs to another session")
)

// FieldError names one missing or invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any remote call when the form or cart is
// not submittable. It lists every problem at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid checkout: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
