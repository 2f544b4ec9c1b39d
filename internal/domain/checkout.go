package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FulfillmentMode selects how a recorded order is handed off to the buyer.
type FulfillmentMode string

const (
	ModeMessageHandoff FulfillmentMode = "message-handoff"
	ModeHostedRedirect FulfillmentMode = "hosted-redirect"
)

func ParseFulfillmentMode(s string) (FulfillmentMode, error) {
	switch m := FulfillmentMode(s); m {
	case ModeMessageHandoff, ModeHostedRedirect:
		return m, nil
	}
	return "", fmt.Errorf("unknown checkout mode %q", s)
}

func (m FulfillmentMode) PaymentMethod() PaymentMethod {
	if m == ModeHostedRedirect {
		return PaymentMethodMercadoPago
	}
	return PaymentMethodWhatsApp
}

// CheckoutIntent is the immutable payload of one checkout submission. Lines are
// copies of the cart lines at submit time.
type CheckoutIntent struct {
	IdempotencyKey string
	Mode           FulfillmentMode
	Buyer          Buyer
	Address        Address
	Lines          []CartLine
	Total          decimal.Decimal
}

func NewCheckoutIntent(key string, mode FulfillmentMode, buyer Buyer, addr Address, cart CartState) CheckoutIntent {
	snapshot := cart.Clone()
	return CheckoutIntent{
		IdempotencyKey: key,
		Mode:           mode,
		Buyer:          buyer,
		Address:        addr,
		Lines:          snapshot.Lines,
		Total:          snapshot.Total(),
	}
}

// Order builds the pending order record for this intent.
func (i CheckoutIntent) Order() *Order {
	items := make([]OrderItem, len(i.Lines))
	for n, l := range i.Lines {
		items[n] = OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Size:        l.Size,
			Quantity:    l.Quantity,
			Price:       l.UnitPrice,
			ImageURL:    l.ImageURL,
		}
	}
	return &Order{
		IdempotencyKey: i.IdempotencyKey,
		Buyer:          i.Buyer,
		Address:        i.Address,
		TotalValue:     i.Total,
		Status:         OrderStatusPending,
		PaymentMethod:  i.Mode.PaymentMethod(),
		Items:          items,
	}
}
