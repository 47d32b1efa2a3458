package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ConversionSource string

const (
	SourceContextMenu   ConversionSource = "context-menu"
	SourceManual        ConversionSource = "manual"
	SourceAPI           ConversionSource = "api"
	SourcePopup         ConversionSource = "popup"
	SourceHistoryRepeat ConversionSource = "history-repeat"
)

func (s ConversionSource) Valid() bool {
	switch s {
	case SourceContextMenu, SourceManual, SourceAPI, SourcePopup, SourceHistoryRepeat:
		return true
	}
	return false
}

func ParseConversionSource(s string) (ConversionSource, error) {
	src := ConversionSource(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown conversion source %q", s)
	}
	return src, nil
}

// DateLayout is the ISO date used for record dates and daily buckets.
const DateLayout = "2006-01-02"

// ConversionResult is the outcome of a single rate resolution.
type ConversionResult struct {
	OriginalAmount  decimal.Decimal `json:"originalAmount"`
	FromCurrency    string          `json:"fromCurrency"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	ToCurrency      string          `json:"toCurrency"`
	Rate            decimal.Decimal `json:"rate"`
	Timestamp       time.Time       `json:"timestamp"`
	Source          string          `json:"source"`
	Cached          bool            `json:"cached"`
	Offline         bool            `json:"offline"`
}

// Display returns the converted amount rounded for presentation.
func (r ConversionResult) Display(places *int) string {
	return FormatAmount(r.ToCurrency, r.ConvertedAmount, places)
}

// ConversionRecord is an immutable history entry.
type ConversionRecord struct {
	ID              string           `json:"id"`
	FromCurrency    string           `json:"fromCurrency"`
	ToCurrency      string           `json:"toCurrency"`
	OriginalAmount  decimal.Decimal  `json:"originalAmount"`
	ConvertedAmount decimal.Decimal  `json:"convertedAmount"`
	ExchangeRate    decimal.Decimal  `json:"exchangeRate"`
	Timestamp       int64            `json:"timestamp"`
	Source          ConversionSource `json:"source"`
	Confidence      *float64         `json:"confidence"`
	Webpage         *string          `json:"webpage"`
	Date            string           `json:"date"`
	Provider        string           `json:"provider,omitempty"`
	Cached          bool             `json:"cached,omitempty"`
	Offline         bool             `json:"offline,omitempty"`
}

func (r ConversionRecord) Pair() Pair { return Pair{From: r.FromCurrency, To: r.ToCurrency} }

func (r ConversionRecord) Time() time.Time { return time.UnixMilli(r.Timestamp).UTC() }

// DateOf derives the record date (UTC) from an epoch-ms timestamp.
func DateOf(ms int64) string { return time.UnixMilli(ms).UTC().Format(DateLayout) }

// RecordFromResult builds a history entry (without id) from a resolved conversion.
func RecordFromResult(res ConversionResult, source ConversionSource, confidence *float64, webpage *string, at time.Time) ConversionRecord {
	return ConversionRecord{
		FromCurrency:    res.FromCurrency,
		ToCurrency:      res.ToCurrency,
		OriginalAmount:  res.OriginalAmount,
		ConvertedAmount: res.ConvertedAmount,
		ExchangeRate:    res.Rate,
		Timestamp:       at.UnixMilli(),
		Source:          source,
		Confidence:      confidence,
		Webpage:         webpage,
		Provider:        res.Source,
		Cached:          res.Cached,
		Offline:         res.Offline,
	}
}
