package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	exchangeRatesLatestPath = "/v1/latest"
)

// ExchangeRatesAPIProvider quotes against the EUR-based exchangeratesapi.io
// table and needs an access key.
type ExchangeRatesAPIProvider struct {
	BaseURL           string
	APIKey            string
	Priority          int
	RequestsPerMinute int
	Client            *httpx.Client
	Log               *zap.Logger
}

var _ application.RateSource = (*ExchangeRatesAPIProvider)(nil)

type xrLatestResp struct {
	Success   bool                       `json:"success"`
	Timestamp int64                      `json:"timestamp"`
	Base      string                     `json:"base"`
	Date      string                     `json:"date"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Error     *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

func (p *ExchangeRatesAPIProvider) Info() application.ProviderInfo {
	return application.ProviderInfo{
		ID:                 IDExchangeRatesAPI,
		Priority:           p.Priority,
		RequiresCredential: true,
		Configured:         p.BaseURL != "" && p.APIKey != "",
		RequestsPerMinute:  p.RequestsPerMinute,
	}
}

func (p *ExchangeRatesAPIProvider) FetchRate(ctx context.Context, from, to string) (domain.RateSample, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.RateSample{}, errors.New("exchangeratesapi: missing configuration")
	}

	q := url.Values{}
	q.Set("access_key", p.APIKey)
	q.Set("symbols", from+","+to)
	u, err := endpoint(p.BaseURL, exchangeRatesLatestPath, q)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("exchangeratesapi: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RateSample{}, fmt.Errorf("exchangeratesapi: create request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body xrLatestResp
	if err := client.DoJSON(ctx, req, &body, p.Log); err != nil {
		return domain.RateSample{}, failure(IDExchangeRatesAPI, err)
	}
	if !body.Success {
		if body.Error != nil {
			return domain.RateSample{}, failure(IDExchangeRatesAPI, fmt.Errorf("%d %s", body.Error.Code, body.Error.Info))
		}
		return domain.RateSample{}, failure(IDExchangeRatesAPI, errors.New("unsuccessful response"))
	}
	base := body.Base
	if base == "" {
		base = "EUR"
	}

	r, err := crossRate(IDExchangeRatesAPI, base, from, to, func(c string) (decimal.Decimal, bool) {
		v, ok := body.Rates[c]
		return v, ok
	})
	if err != nil {
		return domain.RateSample{}, err
	}
	return domain.RateSample{Rate: r, Timestamp: unixOrNow(body.Timestamp)}, nil
}
