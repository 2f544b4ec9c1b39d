package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultSize is used for products added without a variant choice.
	DefaultSize = "UN"

	// DefaultImageURL is shown for products without an uploaded image.
	DefaultImageURL = "/img/camisa-frente.png"
)

// CartLine is one product+size entry. Name, price and image are captured when the
// line is first added and are not refreshed from the catalog afterwards.
type CartLine struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartState holds the ordered cart lines. Totals are derived, never stored.
type CartState struct {
	Lines []CartLine `json:"items"`
}

func NormalizeSize(size string) string {
	s := strings.TrimSpace(size)
	if s == "" {
		return DefaultSize
	}
	return s
}

// ErrInvalidCart is wrapped by Validate for every rule a cart breaks.
var ErrInvalidCart = errors.New("invalid cart")

// Validate checks the rules AddLine maintains: positive quantities, a size on
// every line, non-negative prices and one line per (product, size).
func (s CartState) Validate() error {
	seen := make(map[string]struct{}, len(s.Lines))
	for i, l := range s.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has quantity %d", ErrInvalidCart, i, l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d has price %s", ErrInvalidCart, i, l.UnitPrice)
		}
		if strings.TrimSpace(l.Size) == "" {
			return fmt.Errorf("%w: line %d has no size", ErrInvalidCart, i)
		}
		key := fmt.Sprintf("%d/%s", l.ProductID, NormalizeSize(l.Size))
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate line %s", ErrInvalidCart, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Find returns the index of the line for (productID, size) or -1.
func (s CartState) Find(productID int64, size string) int {
	size = NormalizeSize(size)
	for i, l := range s.Lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

func (s CartState) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s CartState) Count() int {
	count := 0
	for _, l := range s.Lines {
		count += l.Quantity
	}
	return count
}

func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Clone returns a deep copy so callers cannot mutate the owner's lines.
func (s CartState) Clone() CartState {
	if s.Lines == nil {
		return CartState{}
	}
	lines := make([]CartLine, len(s.Lines))
	copy(lines, s.Lines)
	return CartState{Lines: lines}
}
