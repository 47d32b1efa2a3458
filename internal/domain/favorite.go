package domain

import "github.com/shopspring/decimal"

// FavoritePair is a saved conversion shortcut.
type FavoritePair struct {
	ID           string           `json:"id"`
	FromCurrency string           `json:"fromCurrency"`
	ToCurrency   string           `json:"toCurrency"`
	Amount       *decimal.Decimal `json:"amount"`
	Label        string           `json:"label"`
	CreatedAt    int64            `json:"createdAt"`
	UsageCount   int              `json:"usageCount"`
	LastUsed     *int64           `json:"lastUsed"`
}

func (f FavoritePair) Pair() Pair { return Pair{From: f.FromCurrency, To: f.ToCurrency} }

// SameTriple reports whether f and (from, to, amount) collide under the
// favorites uniqueness rule.
func (f FavoritePair) SameTriple(from, to string, amount *decimal.Decimal) bool {
	if f.FromCurrency != from || f.ToCurrency != to {
		return false
	}
	switch {
	case f.Amount == nil && amount == nil:
		return true
	case f.Amount == nil || amount == nil:
		return false
	default:
		return f.Amount.Equal(*amount)
	}
}

// DefaultFavoriteLabel is used when the user gives no label.
func DefaultFavoriteLabel(from, to string, amount *decimal.Decimal) string {
	if amount == nil {
		return from + " → " + to
	}
	return amount.String() + " " + from + " → " + to
}
