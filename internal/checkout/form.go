package checkout

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/SrFlag/Melos-Company/internal/address"
	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/SrFlag/Melos-Company/internal/payment"
)

var statePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// Form is what the buyer typed into the checkout page.
type Form struct {
	Buyer   domain.Buyer   `json:"buyer"`
	Address domain.Address `json:"address"`
}

func (f Form) normalized() Form {
	trim := strings.TrimSpace
	f.Buyer = domain.Buyer{
		Name:  trim(f.Buyer.Name),
		Email: trim(f.Buyer.Email),
		Phone: trim(f.Buyer.Phone),
		TaxID: payment.DigitsOnly(f.Buyer.TaxID),
	}
	f.Address = domain.Address{
		PostalCode: trim(f.Address.PostalCode),
		Street:     trim(f.Address.Street),
		Number:     trim(f.Address.Number),
		Complement: trim(f.Address.Complement),
		District:   trim(f.Address.District),
		City:       trim(f.Address.City),
		State:      strings.ToUpper(trim(f.Address.State)),
	}
	if cep, err := address.NormalizePostalCode(f.Address.PostalCode); err == nil {
		f.Address.PostalCode = cep
	}
	return f
}

// validate checks the normalized form. The tax id is only required when the
// buyer pays through the hosted gateway.
func (f Form) validate(mode domain.FulfillmentMode, cart domain.CartState) error {
	verr := &ValidationError{}

	switch {
	case cart.IsEmpty():
		verr.add("cart", ErrEmptyCart.Error())
	case !cart.Total().IsPositive():
		verr.add("cart", "total must be greater than zero")
	}

	required := []struct{ field, value string }{
		{"buyer.name", f.Buyer.Name},
		{"buyer.email", f.Buyer.Email},
		{"buyer.phone", f.Buyer.Phone},
		{"address.zipcode", f.Address.PostalCode},
		{"address.street", f.Address.Street},
		{"address.number", f.Address.Number},
		{"address.district", f.Address.District},
		{"address.city", f.Address.City},
		{"address.state", f.Address.State},
	}
	for _, r := range required {
		if r.value == "" {
			verr.add(r.field, "is required")
		}
	}

	if f.Buyer.Email != "" {
		if _, err := mail.ParseAddress(f.Buyer.Email); err != nil {
			verr.add("buyer.email", "is not a valid e-mail")
		}
	}
	if f.Address.PostalCode != "" {
		if _, err := address.NormalizePostalCode(f.Address.PostalCode); err != nil {
			verr.add("address.zipcode", err.Error())
		}
	}
	if f.Address.State != "" && !statePattern.MatchString(f.Address.State) {
		verr.add("address.state", "must be a two letter state code")
	}

	if mode == domain.ModeHostedRedirect {
		switch {
		case f.Buyer.TaxID == "":
			verr.add("buyer.cpf", "is required")
		case len(f.Buyer.TaxID) != 11:
			verr.add("buyer.cpf", "must have 11 digits")
		}
	}

	return verr.orNil()
}
