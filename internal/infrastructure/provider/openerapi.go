package provider

import (
	"context"
	"fmt"
	"net/http"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// OpenERProvider reads the open.er-api.com free table for the source
// currency. No key required.
type OpenERProvider struct {
	BaseURL           string
	Priority          int
	RequestsPerMinute int
	Client            *httpx.Client
	Log               *zap.Logger
}

var _ application.RateSource = (*OpenERProvider)(nil)

func (p *OpenERProvider) Info() application.ProviderInfo {
	return application.ProviderInfo{
		ID:                IDOpenER,
		Priority:          p.Priority,
		Configured:        p.BaseURL != "",
		RequestsPerMinute: p.RequestsPerMinute,
	}
}

func (p *OpenERProvider) FetchRate(ctx context.Context, from, to string) (domain.RateSample, error) {
	u, err := endpoint(p.BaseURL, "/v6/latest/"+from, nil)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("openerapi: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("openerapi: create request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	body, err := client.Do(ctx, req, p.Log)
	if err != nil {
		return domain.RateSample{}, failure(IDOpenER, err)
	}
	if !gjson.ValidBytes(body) {
		return domain.RateSample{}, failure(IDOpenER, fmt.Errorf("invalid json"))
	}
	doc := gjson.ParseBytes(body)
	if res := doc.Get("result").String(); res != "success" {
		return domain.RateSample{}, failure(IDOpenER, fmt.Errorf("result %q: %s", res, doc.Get("error-type").String()))
	}
	base := doc.Get("base_code").String()
	if base == "" {
		base = from
	}
	rates := doc.Get("rates")
	r, err := crossRate(IDOpenER, base, from, to, func(c string) (decimal.Decimal, bool) {
		return gjsonDecimal(rates.Get(c))
	})
	if err != nil {
		return domain.RateSample{}, err
	}
	return domain.RateSample{Rate: r, Timestamp: unixOrNow(doc.Get("time_last_update_unix").Int())}, nil
}

// gjsonDecimal keeps the literal digits of a JSON number.
func gjsonDecimal(v gjson.Result) (decimal.Decimal, bool) {
	if v.Type != gjson.Number {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
