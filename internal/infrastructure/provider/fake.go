package provider

import (
	"context"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/shopspring/decimal"
)

// Ensure Fake implements application.RateSource.
var _ application.RateSource = (*Fake)(nil)

// Fake serves a fixed USD-based table. Used for local runs and as the last
// resort in the chain.
type Fake struct {
	priority int
	usdTo    map[string]decimal.Decimal
}

var defaultFakeTable = map[string]string{
	"EUR": "0.92", "GBP": "0.79", "JPY": "149.50", "CAD": "1.36", "AUD": "1.52",
	"CHF": "0.88", "CNY": "7.20", "SEK": "10.45", "NZD": "1.64", "MXN": "17.10",
	"HKD": "7.82", "INR": "83.10", "KRW": "1330", "BRL": "4.95", "RUB": "91.50",
}

// NewFake builds a Fake. A nil table uses a built-in one.
func NewFake(priority int, usdTo map[string]decimal.Decimal) *Fake {
	if usdTo == nil {
		usdTo = make(map[string]decimal.Decimal, len(defaultFakeTable))
		for code, v := range defaultFakeTable {
			usdTo[code] = decimal.RequireFromString(v)
		}
	}
	return &Fake{priority: priority, usdTo: usdTo}
}

func (f *Fake) Info() application.ProviderInfo {
	return application.ProviderInfo{ID: IDFake, Priority: f.priority, Configured: true}
}

func (f *Fake) FetchRate(_ context.Context, from, to string) (domain.RateSample, error) {
	r, err := crossRate(IDFake, "USD", from, to, func(c string) (decimal.Decimal, bool) {
		v, ok := f.usdTo[c]
		return v, ok
	})
	if err != nil {
		return domain.RateSample{}, err
	}
	return domain.RateSample{Rate: r, Timestamp: time.Now().UTC()}, nil
}
