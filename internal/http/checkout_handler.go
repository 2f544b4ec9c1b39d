package http

import (
	"errors"
	"net/http"

	"github.com/SrFlag/Melos-Company/internal/checkout"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CheckoutHandler struct {
	builder  *checkout.Builder
	sessions SessionProvider
}

func NewCheckoutHandler(builder *checkout.Builder, sessions SessionProvider) *CheckoutHandler {
	return &CheckoutHandler{
		builder:  builder,
		sessions: sessions,
	}
}

type AttemptResponseDTO struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	State          domain.CheckoutState   `json:"state"`
	Mode           domain.FulfillmentMode `json:"mode"`
}

type SubmitRequestDTO struct {
	IdempotencyKey string `json:"idempotency_key"`
	checkout.Form
}

// CreateAttempt mints the idempotency key a client reuses for every retry of one checkout.
func (h *CheckoutHandler) CreateAttempt(w http.ResponseWriter, r *http.Request) {
	a := h.builder.BeginFor(sessionIDFromContext(r.Context()))
	respondJSON(w, r, http.StatusCreated, AttemptResponseDTO{
		IdempotencyKey: a.Key,
		State:          a.State(),
		Mode:           h.builder.Mode(),
	})
}

func (h *CheckoutHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	state, err := h.builder.Status(key, sessionIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "attempt_not_found", err.Error())
		return
	}
	respondJSON(w, r, http.StatusOK, AttemptResponseDTO{
		IdempotencyKey: key,
		State:          state,
		Mode:           h.builder.Mode(),
	})
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, err := h.builder.Attempt(req.IdempotencyKey)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_idempotency_key", err.Error())
		return
	}

	sess, err := h.sessions.Get(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal_error", "could not open cart session")
		return
	}

	res, err := h.builder.Submit(r.Context(), attempt, sess, req.Form)
	if err != nil {
		handleCheckoutError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, res)
}

// Address autofills the checkout form. Unknown or invalid postal codes are a
// 404 and the client keeps the fields editable.
func (h *CheckoutHandler) Address(w http.ResponseWriter, r *http.Request) {
	addr, found := h.builder.LookupAddress(r.Context(), chi.URLParam(r, "cep"))
	if !found {
		respondError(w, r, http.StatusNotFound, "address_not_found", "address not found for postal code")
		return
	}
	respondJSON(w, r, http.StatusOK, addr)
}

func handleCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "checkout form is incomplete",
			Code:    "validation_failed",
			Details: verr.Fields,
		})
	case errors.Is(err, checkout.ErrAttemptInProgress):
		respondError(w, r, http.StatusConflict, "attempt_in_progress", err.Error())
	case errors.Is(err, checkout.ErrIdempotencyKeyUsed):
		respondError(w, r, http.StatusConflict, "idempotency_key_used", "start a new checkout attempt")
	case errors.Is(err, checkout.ErrAttemptForeign):
		respondError(w, r, http.StatusForbidden, "attempt_forbidden", err.Error())
	case errors.Is(err, checkout.ErrOrderNotRecorded):
		respondError(w, r, http.StatusBadGateway, "order_not_recorded", "could not record your order, please try again")
	case errors.Is(err, checkout.ErrHandoffFailed):
		respondError(w, r, http.StatusBadGateway, "handoff_failed", "could not start payment, please try again")
	default:
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
