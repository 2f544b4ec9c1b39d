package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSlug   = errors.New("product slug already exists")
	ErrInvalidProduct  = errors.New("invalid product")
)

// AllCategories is the storefront filter value that disables category filtering.
const AllCategories = "Todos"

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Filter struct {
	Category string
	Search   string
	Limit    int
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *SQLRepository {
	return &SQLRepository{db: conn}
}

const productColumns = `id, name, slug, description, price, image_url, gallery, category, stock, badge, created_at, updated_at`

func (r *SQLRepository) List(ctx context.Context, f Filter) ([]*domain.Product, error) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" && f.Category != AllCategories {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("LOWER(name) LIKE LOWER($%d)", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanOne(row)
}

func (r *SQLRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanOne(row)
}

// Create inserts p, deriving the slug from the name when it is empty.
func (r *SQLRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	gallery, err := encodeGallery(p.Gallery)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (name, slug, description, price, image_url, gallery, category, stock, badge)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		p.Name, p.Slug, p.Description, p.Price, p.ImageURL, gallery, p.Category, p.Stock, p.Badge,
	).Scan(&p.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	stored, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// Update overwrites every editable field of p. The slug is regenerated from the name.
func (r *SQLRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}
	p.Slug = Slugify(p.Name)
	gallery, err := encodeGallery(p.Gallery)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, image_url = $5, gallery = $6,
		    category = $7, stock = $8, badge = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $10
	`
	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Slug, p.Description, p.Price, p.ImageURL, gallery, p.Category, p.Stock, p.Badge, p.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func validate(p *domain.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	case len(p.Gallery) > domain.MaxGalleryImages:
		return fmt.Errorf("%w: at most %d gallery images", ErrInvalidProduct, domain.MaxGalleryImages)
	}
	return nil
}

func encodeGallery(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("failed to encode gallery: %w", err)
	}
	return string(b), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var gallery string
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&gallery,
		&p.Category,
		&p.Stock,
		&p.Badge,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(gallery), &p.Gallery); err != nil {
		p.Gallery = []string{}
	}
	return p, nil
}

func scanOne(row *sql.Row) (*domain.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}
