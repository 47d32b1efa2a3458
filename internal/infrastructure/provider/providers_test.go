package provider_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFrankfurter(t *testing.T) {
	body := `{"amount":1.0,"base":"USD","date":"2025-03-01","rates":{"EUR":0.9543}}`
	var seen *http.Request
	p := &provider.FrankfurterProvider{BaseURL: "https://api.frankfurter.app", Client: httpClient(body, 200, &seen)}

	s, err := p.FetchRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	require.True(t, s.Rate.Equal(decimal.RequireFromString("0.9543")))
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), s.Timestamp)
	require.Equal(t, "/latest", seen.URL.Path)
	require.Equal(t, "USD", seen.URL.Query().Get("from"))
	require.Equal(t, "EUR", seen.URL.Query().Get("to"))
	require.False(t, p.Info().RequiresCredential)

	_, err = p.FetchRate(context.Background(), "USD", "GBP")
	require.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestOpenER(t *testing.T) {
	body := `{"result":"success","time_last_update_unix":1740787201,"base_code":"USD",
	  "rates":{"USD":1,"EUR":0.961234,"JPY":150.62}}`
	var seen *http.Request
	p := &provider.OpenERProvider{BaseURL: "https://open.er-api.com", Client: httpClient(body, 200, &seen)}

	s, err := p.FetchRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	require.True(t, s.Rate.Equal(decimal.RequireFromString("150.62")))
	require.Equal(t, time.Unix(1740787201, 0).UTC(), s.Timestamp)
	require.Equal(t, "/v6/latest/USD", seen.URL.Path)

	s, err = p.FetchRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "0.961234", s.Rate.String())

	_, err = p.FetchRate(context.Background(), "USD", "XAU")
	require.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestOpenER_ErrorResult(t *testing.T) {
	p := &provider.OpenERProvider{
		BaseURL: "https://open.er-api.com",
		Client:  httpClient(`{"result":"error","error-type":"unsupported-code"}`, 200, nil),
	}
	_, err := p.FetchRate(context.Background(), "ABC", "EUR")
	require.ErrorIs(t, err, domain.ErrProviderFailure)
	require.ErrorContains(t, err, "unsupported-code")

	p.Client = httpClient(`{"result":`, 200, nil)
	_, err = p.FetchRate(context.Background(), "USD", "EUR")
	require.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestCurrencyAPI(t *testing.T) {
	body := `{"meta":{"last_updated_at":"2025-03-01T23:59:59Z"},"data":{"GBP":{"code":"GBP","value":0.7925}}}`
	var seen *http.Request
	p := &provider.CurrencyAPIProvider{BaseURL: "https://api.currencyapi.com", APIKey: "k", Client: httpClient(body, 200, &seen)}

	s, err := p.FetchRate(context.Background(), "USD", "GBP")
	require.NoError(t, err)
	require.True(t, s.Rate.Equal(decimal.RequireFromString("0.7925")))
	require.Equal(t, time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC), s.Timestamp)
	require.Equal(t, "k", seen.Header.Get("apikey"))
	require.Equal(t, "USD", seen.URL.Query().Get("base_currency"))

	_, err = p.FetchRate(context.Background(), "USD", "EUR")
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	p.Client = httpClient(`{"message":"Invalid authentication credentials"}`, 200, nil)
	_, err = p.FetchRate(context.Background(), "USD", "GBP")
	require.ErrorContains(t, err, "Invalid authentication")

	unset := &provider.CurrencyAPIProvider{BaseURL: "https://api.currencyapi.com"}
	require.False(t, unset.Info().Configured)
}

func TestFake(t *testing.T) {
	f := provider.NewFake(9, nil)
	s, err := f.FetchRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	require.True(t, s.Rate.Equal(decimal.RequireFromString("0.92")))

	s, err = f.FetchRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	require.True(t, s.Rate.Equal(decimal.RequireFromString("1.086956521739")))

	_, err = f.FetchRate(context.Background(), "USD", "ZAR")
	require.ErrorIs(t, err, domain.ErrProviderFailure)
	require.Equal(t, 9, f.Info().Priority)
}
