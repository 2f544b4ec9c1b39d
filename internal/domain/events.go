package domain

import "github.com/shopspring/decimal"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload published for order lifecycle changes.
type OrderEvent struct {
	OrderID       int64           `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Buyer         Buyer           `json:"buyer"`
	Total         decimal.Decimal `json:"total_value"`
	Items         []OrderItem     `json:"order_items,omitempty"`
}

func NewOrderEvent(o *Order) OrderEvent {
	return OrderEvent{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Buyer:         o.Buyer,
		Total:         o.TotalValue,
		Items:         o.Items,
	}
}
