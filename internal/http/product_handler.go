package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/SrFlag/Melos-Company/internal/catalog"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	products catalog.Repository
	images   storage.ImageStore
	timeout  time.Duration
}

func NewProductHandler(products catalog.Repository, images storage.ImageStore, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		images:   images,
		timeout:  timeout,
	}
}

type ProductRequestDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Gallery     []string        `json:"gallery"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Badge       string          `json:"badge"`
}

func (d ProductRequestDTO) apply(p *domain.Product) {
	p.Name = d.Name
	p.Description = d.Description
	p.Price = d.Price
	p.ImageURL = d.ImageURL
	p.Gallery = d.Gallery
	p.Category = d.Category
	p.Stock = d.Stock
	p.Badge = d.Badge
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	products, err := h.products.List(ctx, filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal_error", "could not list products")
		return
	}
	respondJSON(w, r, http.StatusOK, products)
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	product := &domain.Product{}
	req.apply(product)
	if err := h.products.Create(ctx, product); err != nil {
		handleCatalogError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req ProductRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.products.GetByID(ctx, id)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	req.apply(product)
	if err := h.products.Update(ctx, product); err != nil {
		handleCatalogError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if err := h.products.Delete(ctx, id); err != nil {
		handleCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage stores the multipart "file" field and returns its public url.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		respondError(w, r, http.StatusServiceUnavailable, "uploads_unavailable", "image storage is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_upload", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_upload", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_upload", "could not read file")
		return
	}

	url, err := h.images.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyImage), errors.Is(err, storage.ErrNotAnImage):
			respondError(w, r, http.StatusBadRequest, "invalid_image", err.Error())
		case errors.Is(err, storage.ErrImageTooLarge):
			respondError(w, r, http.StatusRequestEntityTooLarge, "image_too_large", err.Error())
		default:
			respondError(w, r, http.StatusBadGateway, "upload_failed", "could not store image")
		}
		return
	}
	respondJSON(w, r, http.StatusCreated, map[string]string{"url": url})
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, r, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, catalog.ErrDuplicateSlug):
		respondError(w, r, http.StatusConflict, "duplicate_slug", err.Error())
	case errors.Is(err, catalog.ErrInvalidProduct):
		respondError(w, r, http.StatusBadRequest, "invalid_product", err.Error())
	default:
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
