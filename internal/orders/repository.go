package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already recorded for idempotency key")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrEmptyOrder     = errors.New("order has no items")
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, limit int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	UnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *SQLRepository {
	return &SQLRepository{db: conn}
}

const orderColumns = `id, idempotency_key, customer_name, customer_email, customer_phone, customer_tax_id,
	address_zip, address_street, address_number, address_complement, address_district, address_city, address_state,
	total_value, status, payment_method, created_at`

// Create records the order, its items and an order.created outbox event in one
// transaction. When the idempotency key was already used, the stored order is
// copied into order and ErrDuplicateOrder is returned.
func (r *SQLRepository) Create(ctx context.Context, order *domain.Order) error {
	if len(order.Items) == 0 {
		return ErrEmptyOrder
	}

	err := r.insert(ctx, order)
	if err != nil {
		if !errors.Is(err, ErrDuplicateOrder) {
			return err
		}
		existing, getErr := r.getByIdempotencyKey(ctx, order.IdempotencyKey)
		if getErr != nil {
			return fmt.Errorf("load existing order: %w", getErr)
		}
		*order = *existing
		return ErrDuplicateOrder
	}

	stored, err := r.Get(ctx, order.ID)
	if err != nil {
		return err
	}
	order.CreatedAt = stored.CreatedAt
	return nil
}

func (r *SQLRepository) insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO orders (idempotency_key, customer_name, customer_email, customer_phone, customer_tax_id,
	              address_zip, address_street, address_number, address_complement, address_district, address_city, address_state,
	              total_value, status, payment_method)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING id`

	var id int64
	err = tx.QueryRowContext(ctx, query,
		order.IdempotencyKey,
		order.Buyer.Name,
		order.Buyer.Email,
		order.Buyer.Phone,
		order.Buyer.TaxID,
		order.Address.PostalCode,
		order.Address.Street,
		order.Address.Number,
		order.Address.Complement,
		order.Address.District,
		order.Address.City,
		order.Address.State,
		order.TotalValue,
		order.Status,
		order.PaymentMethod,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, product_name, size, quantity, price, image_url)
	              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, it := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			id, it.ProductID, it.ProductName, it.Size, it.Quantity, it.Price, it.ImageURL,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	order.ID = id
	if err := insertEvent(ctx, tx, domain.EventOrderCreated, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		order.ID = 0
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, eventType string, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderEvent(order))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		strconv.FormatInt(order.ID, 10), eventType, string(payload))
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *SQLRepository) getByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the newest orders first, items included.
func (r *SQLRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus changes the order status and records an order.status_changed event.
func (r *SQLRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	order.Status = status
	order.Items = nil
	if err := insertEvent(ctx, tx, domain.EventOrderStatusChanged, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

func (r *SQLRepository) UnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE published_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e       OutboxEvent
			payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published_at = CURRENT_TIMESTAMP WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	err := s.Scan(
		&o.ID,
		&o.IdempotencyKey,
		&o.Buyer.Name,
		&o.Buyer.Email,
		&o.Buyer.Phone,
		&o.Buyer.TaxID,
		&o.Address.PostalCode,
		&o.Address.Street,
		&o.Address.Number,
		&o.Address.Complement,
		&o.Address.District,
		&o.Address.City,
		&o.Address.State,
		&o.TotalValue,
		&o.Status,
		&o.PaymentMethod,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

func (r *SQLRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	placeholders := make([]string, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = o.ID
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, product_name, size, quantity, price, image_url
		 FROM order_items WHERE order_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY order_id, id`,
		args...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Size, &it.Quantity, &it.Price, &it.ImageURL); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}
