package domain

import "github.com/shopspring/decimal"

// AmountFormat names the pattern family that produced a detection.
type AmountFormat string

const (
	FormatSymbolPrefix AmountFormat = "symbolPrefix"
	FormatSymbolSuffix AmountFormat = "symbolSuffix"
	FormatCodePrefix   AmountFormat = "codePrefix"
	FormatCodeSuffix   AmountFormat = "codeSuffix"
)

// DetectedAmount is a currency amount found in free-form text.
// Candidates lists every code the matched symbol may stand for, best first.
type DetectedAmount struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	MatchedText  string          `json:"matchedText"`
	Format       AmountFormat    `json:"format"`
	Confidence   float64         `json:"confidence"`
	Symbol       string          `json:"symbol,omitempty"`
	Candidates   []string        `json:"candidates,omitempty"`
}
