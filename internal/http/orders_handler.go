package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SrFlag/Melos-Company/internal/auth"
	"github.com/SrFlag/Melos-Company/internal/checkout"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultOrdersLimit = 50

type OrderStore interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, limit int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type OrdersHandler struct {
	orders         OrderStore
	whatsAppNumber string
	timeout        time.Duration
}

func NewOrdersHandler(orders OrderStore, whatsAppNumber string, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:         orders,
		whatsAppNumber: whatsAppNumber,
		timeout:        timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// FollowUp returns the messaging link a buyer uses to ask about an order.
func (h *OrdersHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.whatsAppNumber == "" {
		respondError(w, r, http.StatusNotFound, "messaging_unavailable", "no messaging number configured")
		return
	}
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.orders.Get(ctx, id); err != nil {
		handleOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{
		"url": checkout.FollowUpLink(h.whatsAppNumber, id),
	})
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := defaultOrdersLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.orders.List(ctx, limit)
	if err != nil {
		handleOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, list)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.orders.UpdateStatus(ctx, id, req.Status); err != nil {
		handleOrderError(w, r, err)
		return
	}

	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		zerolog.Ctx(r.Context()).Info().
			Int64("order_id", id).
			Str("status", string(req.Status)).
			Str("admin", claims.Email).
			Msg("order status updated")
	}

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		handleOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_order_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func handleOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, r, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, orders.ErrInvalidStatus):
		respondError(w, r, http.StatusBadRequest, "invalid_status", err.Error())
	default:
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
