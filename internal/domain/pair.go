package domain

import (
	"fmt"
	"regexp"
)

// PairSeparator joins the two legs in pair keys, e.g. "USD→EUR".
const PairSeparator = "→"

type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var pairRe = regexp.MustCompile(`^([A-Za-z]{3})\s*(?:/|→|->|-)\s*([A-Za-z]{3})$`)

func NewPair(from, to string) Pair {
	return Pair{From: NormalizeCode(from), To: NormalizeCode(to)}
}

// Key is the map key used by pair usage statistics.
func (p Pair) Key() string { return p.From + PairSeparator + p.To }

func (p Pair) String() string { return p.Key() }

// Validate checks both legs against the catalogue.
func (p Pair) Validate() error {
	if !IsKnownCurrency(p.From) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, p.From)
	}
	if !IsKnownCurrency(p.To) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, p.To)
	}
	return nil
}

// ParsePair accepts "USD/EUR", "USD→EUR", "USD->EUR" and "USD-EUR".
func ParsePair(s string) (Pair, error) {
	m := pairRe.FindStringSubmatch(s)
	if m == nil {
		return Pair{}, fmt.Errorf("invalid pair format: %q", s)
	}
	p := NewPair(m[1], m[2])
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}
