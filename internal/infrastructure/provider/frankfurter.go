package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FrankfurterProvider reads ECB reference rates; no key required.
type FrankfurterProvider struct {
	BaseURL           string
	Priority          int
	RequestsPerMinute int
	Client            *httpx.Client
	Log               *zap.Logger
}

var _ application.RateSource = (*FrankfurterProvider)(nil)

type frankfurterResp struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (p *FrankfurterProvider) Info() application.ProviderInfo {
	return application.ProviderInfo{
		ID:                IDFrankfurter,
		Priority:          p.Priority,
		Configured:        p.BaseURL != "",
		RequestsPerMinute: p.RequestsPerMinute,
	}
}

func (p *FrankfurterProvider) FetchRate(ctx context.Context, from, to string) (domain.RateSample, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	u, err := endpoint(p.BaseURL, "/latest", q)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("frankfurter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("frankfurter: create request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body frankfurterResp
	if err := client.DoJSON(ctx, req, &body, p.Log); err != nil {
		return domain.RateSample{}, failure(IDFrankfurter, err)
	}
	if body.Base != "" && body.Base != from {
		return domain.RateSample{}, failure(IDFrankfurter, fmt.Errorf("base %s, asked %s", body.Base, from))
	}
	r, ok := body.Rates[to]
	if !ok || !r.IsPositive() {
		return domain.RateSample{}, fmt.Errorf("frankfurter: missing rate for %s: %w", to, domain.ErrProviderFailure)
	}
	ts := time.Now().UTC()
	if d, err := time.Parse(domain.DateLayout, body.Date); err == nil {
		ts = d
	}
	return domain.RateSample{Rate: r, Timestamp: ts}, nil
}
