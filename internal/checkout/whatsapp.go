package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/payment"
	"github.com/shopspring/decimal"
)

func WhatsAppLink(number, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", payment.DigitsOnly(number), url.QueryEscape(text))
}

// FollowUpLink is offered on the confirmation page so the buyer can ask about an order.
func FollowUpLink(number string, orderID int64) string {
	return WhatsAppLink(number, fmt.Sprintf("Olá, fiz o pedido #%d e gostaria de acompanhar.", orderID))
}

// OrderSummary renders the pre-filled message for the message handoff.
func OrderSummary(orderID int64, intent domain.CheckoutIntent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá! Quero finalizar o pedido #%d:\n\n", orderID)
	for _, l := range intent.Lines {
		fmt.Fprintf(&b, "%dx %s (%s) - %s\n", l.Quantity, l.Name, l.Size, FormatBRL(l.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n", FormatBRL(intent.Total))

	fmt.Fprintf(&b, "Nome: %s\n", intent.Buyer.Name)
	fmt.Fprintf(&b, "Telefone: %s\n", intent.Buyer.Phone)

	a := intent.Address
	street := a.Street + ", " + a.Number
	if a.Complement != "" {
		street += " - " + a.Complement
	}
	fmt.Fprintf(&b, "Endereço: %s, %s, %s/%s, CEP %s", street, a.District, a.City, a.State, a.PostalCode)
	return b.String()
}

// FormatBRL formats an amount as "R$ 1234,50".
func FormatBRL(v decimal.Decimal) string {
	return "R$ " + strings.Replace(v.StringFixed(2), ".", ",", 1)
}
