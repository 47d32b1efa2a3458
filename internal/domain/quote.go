package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSample is what a single rate source returns for one pair.
type RateSample struct {
	Rate      decimal.Decimal
	Timestamp time.Time
}

// ExchangeRateQuote is a resolved rate with its provenance.
type ExchangeRateQuote struct {
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	Timestamp    time.Time       `json:"timestamp"`
	Source       string          `json:"source"`
	Cached       bool            `json:"cached"`
}

func (q ExchangeRateQuote) Pair() Pair { return Pair{From: q.FromCurrency, To: q.ToCurrency} }
