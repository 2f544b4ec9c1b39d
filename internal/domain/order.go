package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pendente"
	OrderStatusPaid      OrderStatus = "Pago"
	OrderStatusShipped   OrderStatus = "Enviado"
	OrderStatusCancelled OrderStatus = "Cancelado"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodWhatsApp    PaymentMethod = "whatsapp"
	PaymentMethodMercadoPago PaymentMethod = "mercadopago"
)

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	TaxID string `json:"cpf,omitempty"`
}

type Address struct {
	PostalCode string `json:"zipcode"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
}

type Order struct {
	ID             int64           `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Buyer          Buyer           `json:"buyer"`
	Address        Address         `json:"address"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Items          []OrderItem     `json:"order_items"`
	CreatedAt      time.Time       `json:"created_at"`
}
