package checkout

import (
	"context"
	"fmt"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/payment"
)

// Handoff is where the buyer is sent once the order is recorded.
type Handoff struct {
	RedirectURL  string `json:"redirect_url"`
	PreferenceID string `json:"preference_id,omitempty"`
}

// Fulfillment hands a recorded order off to the buyer. Exactly one
// implementation is active, chosen by the configured mode.
type Fulfillment interface {
	Mode() domain.FulfillmentMode
	Handoff(ctx context.Context, intent domain.CheckoutIntent, order *domain.Order) (Handoff, error)
}

// MessageHandoff finishes the order in a WhatsApp conversation.
type MessageHandoff struct {
	number string
}

func NewMessageHandoff(number string) *MessageHandoff {
	return &MessageHandoff{number: number}
}

func (m *MessageHandoff) Mode() domain.FulfillmentMode {
	return domain.ModeMessageHandoff
}

func (m *MessageHandoff) Handoff(_ context.Context, intent domain.CheckoutIntent, order *domain.Order) (Handoff, error) {
	return Handoff{RedirectURL: WhatsAppLink(m.number, OrderSummary(order.ID, intent))}, nil
}

// HostedRedirect sends the buyer to the payment gateway's hosted checkout.
type HostedRedirect struct {
	preferences   payment.PreferenceCreator
	returnBaseURL string
}

func NewHostedRedirect(preferences payment.PreferenceCreator, returnBaseURL string) *HostedRedirect {
	return &HostedRedirect{preferences: preferences, returnBaseURL: returnBaseURL}
}

func (h *HostedRedirect) Mode() domain.FulfillmentMode {
	return domain.ModeHostedRedirect
}

func (h *HostedRedirect) Handoff(ctx context.Context, intent domain.CheckoutIntent, order *domain.Order) (Handoff, error) {
	pref, err := h.preferences.CreatePreference(ctx, payment.PreferenceRequest{
		IdempotencyKey: intent.IdempotencyKey,
		OrderID:        order.ID,
		Items:          order.Items,
		Buyer:          intent.Buyer,
		ReturnBaseURL:  h.returnBaseURL,
	})
	if err != nil {
		return Handoff{}, fmt.Errorf("create payment preference: %w", err)
	}
	return Handoff{RedirectURL: pref.InitPoint, PreferenceID: pref.ID}, nil
}
