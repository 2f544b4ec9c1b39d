package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxGalleryImages is the number of extra image slots per product.
const MaxGalleryImages = 4

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Gallery     []string        `json:"gallery"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Badge       string          `json:"badge,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DisplayImage falls back to the placeholder when no image was uploaded.
func (p Product) DisplayImage() string {
	if p.ImageURL == "" {
		return DefaultImageURL
	}
	return p.ImageURL
}
