package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SrFlag/Melos-Company/internal/cart"
	"github.com/SrFlag/Melos-Company/internal/catalog"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SessionProvider hands out the cart session of a client.
type SessionProvider interface {
	Get(ctx context.Context, id string) (*cart.Session, error)
}

type ProductGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type CartHandler struct {
	sessions SessionProvider
	products ProductGetter
	timeout  time.Duration
}

func NewCartHandler(sessions SessionProvider, products ProductGetter, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*cart.Session, bool) {
	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_session", "session id is required")
		return nil, false
	}

	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal_error", "could not open cart session")
		return nil, false
	}
	return sess, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, r, http.StatusOK, sess.View())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, r, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "internal_error", "could not load product")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.AddLine(ctx, *product, req.Size)

	respondJSON(w, r, http.StatusCreated, sess.View())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	// removing a pair that is not in the cart leaves it unchanged
	sess.RemoveLine(r.Context(), productID, r.URL.Query().Get("size"))

	respondJSON(w, r, http.StatusOK, sess.View())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Clear(r.Context())

	respondJSON(w, r, http.StatusOK, sess.View())
}

func (h *CartHandler) Panel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	switch chi.URLParam(r, "action") {
	case "open":
		sess.OpenPanel()
	case "close":
		sess.ClosePanel()
	case "toggle":
		sess.TogglePanel()
	default:
		respondError(w, r, http.StatusBadRequest, "invalid_action", "action must be open, close or toggle")
		return
	}

	respondJSON(w, r, http.StatusOK, sess.View())
}
