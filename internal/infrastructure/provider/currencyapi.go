package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/httpx"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// CurrencyAPIProvider reads currencyapi.com v3 and needs an API key, sent in
// the apikey header.
type CurrencyAPIProvider struct {
	BaseURL           string
	APIKey            string
	Priority          int
	RequestsPerMinute int
	Client            *httpx.Client
	Log               *zap.Logger
}

var _ application.RateSource = (*CurrencyAPIProvider)(nil)

func (p *CurrencyAPIProvider) Info() application.ProviderInfo {
	return application.ProviderInfo{
		ID:                 IDCurrencyAPI,
		Priority:           p.Priority,
		RequiresCredential: true,
		Configured:         p.BaseURL != "" && p.APIKey != "",
		RequestsPerMinute:  p.RequestsPerMinute,
	}
}

func (p *CurrencyAPIProvider) FetchRate(ctx context.Context, from, to string) (domain.RateSample, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.RateSample{}, errors.New("currencyapi: missing configuration")
	}
	q := url.Values{}
	q.Set("base_currency", from)
	q.Set("currencies", to)
	u, err := endpoint(p.BaseURL, "/v3/latest", q)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("currencyapi: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("currencyapi: create request: %w", err)
	}
	req.Header.Set("apikey", p.APIKey)

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	body, err := client.Do(ctx, req, p.Log)
	if err != nil {
		return domain.RateSample{}, failure(IDCurrencyAPI, err)
	}
	if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		return domain.RateSample{}, failure(IDCurrencyAPI, errors.New(msg.String()))
	}
	r, ok := gjsonDecimal(gjson.GetBytes(body, "data."+to+".value"))
	if !ok || !r.IsPositive() {
		return domain.RateSample{}, fmt.Errorf("currencyapi: missing rate for %s: %w", to, domain.ErrProviderFailure)
	}
	ts := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, gjson.GetBytes(body, "meta.last_updated_at").String()); err == nil {
		ts = t.UTC()
	}
	return domain.RateSample{Rate: r, Timestamp: ts}, nil
}
