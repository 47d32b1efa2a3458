package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/memkv"
	"fxconvert/internal/infrastructure/metrics"
	"fxconvert/internal/infrastructure/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memIdem) TryReserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

type testAPI struct {
	h       http.Handler
	history *application.HistoryStore
}

func setup(t *testing.T, opts ...ServerOption) testAPI {
	t.Helper()
	kv := memkv.New()
	resolver := application.NewResolver([]application.RateSource{provider.NewFake(1, nil)})
	history := application.NewHistoryStore(kv)
	settings := application.NewSettingsStore(kv, nil)
	require.NoError(t, history.Load(context.Background()))
	require.NoError(t, settings.Load(context.Background()))
	svc := application.NewConversionService(resolver, history, settings, &memIdem{seen: map[string]bool{}})
	return testAPI{h: NewRouter(NewServer(svc, history, settings, resolver, opts...)), history: history}
}

func (a testAPI) do(t *testing.T, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Message)
}

func TestHealthz(t *testing.T) {
	a := setup(t)
	rec := a.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz_FailingCheck(t *testing.T) {
	a := setup(t, WithReadiness(func(context.Context) error { return errors.New("down") }))
	rec := a.do(t, http.MethodGet, "/readyz", "")
	requireError(t, rec, http.StatusServiceUnavailable, "not_ready")

	ok := setup(t, WithReadiness(func(context.Context) error { return nil }))
	require.Equal(t, http.StatusOK, ok.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestCurrenciesAndProviders(t *testing.T) {
	a := setup(t)
	cur := decode[[]domain.Currency](t, a.do(t, http.MethodGet, "/currencies", ""))
	require.NotEmpty(t, cur)
	require.Equal(t, "AED", cur[0].Code)

	prov := decode[[]application.ProviderInfo](t, a.do(t, http.MethodGet, "/providers", ""))
	require.Len(t, prov, 1)
	require.Equal(t, "fake", prov[0].ID)
}

type outcomeBody struct {
	Found  bool `json:"found"`
	Result struct {
		ConvertedAmount decimal.Decimal `json:"convertedAmount"`
		ToCurrency      string          `json:"toCurrency"`
		Source          string          `json:"source"`
	} `json:"result"`
	Display   string                   `json:"display"`
	Record    *domain.ConversionRecord `json:"record"`
	Persisted bool                     `json:"persisted"`
}

func TestSelections(t *testing.T) {
	a := setup(t)

	rec := a.do(t, http.MethodPost, "/selections", `{"text":"only $100 today","webpage":"https://shop.example"}`, "X-Idempotency-Key", "k1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[outcomeBody](t, rec)
	require.True(t, out.Found)
	require.Equal(t, "EUR", out.Result.ToCurrency)
	require.True(t, out.Result.ConvertedAmount.Equal(decimal.NewFromInt(92)))
	require.Equal(t, "92.00", out.Display)
	require.True(t, out.Persisted)
	require.Equal(t, domain.SourceContextMenu, out.Record.Source)

	rec = a.do(t, http.MethodPost, "/selections", `{"text":"only $100 today"}`, "X-Idempotency-Key", "k1")
	requireError(t, rec, http.StatusConflict, "conflict")

	rec = a.do(t, http.MethodPost, "/selections", `{"text":"nothing here"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"found":false}`, rec.Body.String())

	requireError(t, a.do(t, http.MethodPost, "/selections", `{"text":`), http.StatusBadRequest, "bad_request")
	requireError(t, a.do(t, http.MethodPost, "/selections", `{"text":"$1","source":"fax"}`), http.StatusBadRequest, "bad_request")
}

func TestSelections_AutoFollowsAutoDetect(t *testing.T) {
	a := setup(t)

	rec := a.do(t, http.MethodPost, "/selections", `{"text":"$5","auto":true}`)
	require.True(t, decode[outcomeBody](t, rec).Found)

	rec = a.do(t, http.MethodPut, "/settings/autoDetect", `{"value":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/selections", `{"text":"$5","auto":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"found":false}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/selections", `{"text":"$5"}`)
	require.True(t, decode[outcomeBody](t, rec).Found)
}

func TestDetect(t *testing.T) {
	a := setup(t)
	rec := a.do(t, http.MethodPost, "/detect", `{"text":"€5 or 10 GBP"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Detected []domain.DetectedAmount `json:"detected"`
	}](t, rec)
	require.Len(t, body.Detected, 2)
	require.Equal(t, "EUR", body.Detected[0].CurrencyCode)

	rec = a.do(t, http.MethodPost, "/detect", `{"text":"plain"}`)
	require.JSONEq(t, `{"detected":[]}`, rec.Body.String())
}

func TestConvert(t *testing.T) {
	a := setup(t)

	rec := a.do(t, http.MethodPost, "/convert", `{"amount":"10","from":"usd","to":"JPY","record":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[outcomeBody](t, rec)
	require.True(t, out.Result.ConvertedAmount.Equal(decimal.RequireFromString("1495")))
	require.Equal(t, domain.SourceManual, out.Record.Source)
	require.Len(t, a.history.GetHistory(application.HistoryFilter{}), 1)

	requireError(t, a.do(t, http.MethodPost, "/convert", `{"from":"USD","to":"EUR"}`), http.StatusBadRequest, "bad_request")
	requireError(t, a.do(t, http.MethodPost, "/convert", `{"amount":1,"from":"USD","to":"XXX"}`), http.StatusBadRequest, "unknown_currency")
	requireError(t, a.do(t, http.MethodPost, "/convert", `{"amount":-1,"from":"USD","to":"EUR"}`), http.StatusBadRequest, "invalid_amount")
	requireError(t, a.do(t, http.MethodPost, "/convert", `{"amount":1,"from":"USD","to":"ZAR"}`), http.StatusServiceUnavailable, "providers_exhausted")
}

func TestHistoryStatsAndRepeat(t *testing.T) {
	a := setup(t)
	for _, body := range []string{
		`{"amount":10,"from":"USD","to":"EUR","record":true}`,
		`{"amount":20,"from":"USD","to":"EUR","record":true}`,
		`{"amount":5,"from":"GBP","to":"USD","record":true}`,
	} {
		require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/convert", body).Code)
	}

	hist := decode[[]domain.ConversionRecord](t, a.do(t, http.MethodGet, "/history?pair=USD/EUR&minAmount=15", ""))
	require.Len(t, hist, 1)
	require.True(t, hist[0].OriginalAmount.Equal(decimal.NewFromInt(20)))

	hist = decode[[]domain.ConversionRecord](t, a.do(t, http.MethodGet, "/history?limit=2", ""))
	require.Len(t, hist, 2)
	require.Equal(t, "GBP", hist[0].FromCurrency)

	requireError(t, a.do(t, http.MethodGet, "/history?pair=nope", ""), http.StatusBadRequest, "bad_request")
	requireError(t, a.do(t, http.MethodGet, "/history?dateFrom=03/01/2025", ""), http.StatusBadRequest, "bad_request")

	stats := decode[domain.ConversionStatistics](t, a.do(t, http.MethodGet, "/stats", ""))
	require.Equal(t, 3, stats.TotalConversions)
	require.Equal(t, "USD→EUR", stats.MostUsedPair)

	pairs := decode[[]domain.PairCount](t, a.do(t, http.MethodGet, "/stats/popular-pairs?limit=1", ""))
	require.Equal(t, []domain.PairCount{{Pair: "USD→EUR", From: "USD", To: "EUR", Count: 2}}, pairs)

	rec := a.do(t, http.MethodPost, "/history/"+hist[1].ID+"/repeat", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, domain.SourceHistoryRepeat, decode[outcomeBody](t, rec).Record.Source)
	requireError(t, a.do(t, http.MethodPost, "/history/missing/repeat", ""), http.StatusNotFound, "not_found")

	rebuilt := decode[domain.ConversionStatistics](t, a.do(t, http.MethodPost, "/stats/rebuild", ""))
	require.Equal(t, 4, rebuilt.TotalConversions)

	requireError(t, a.do(t, http.MethodDelete, "/history?scope=everything", ""), http.StatusBadRequest, "bad_request")
	require.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/history", "").Code)
	require.JSONEq(t, `[]`, a.do(t, http.MethodGet, "/history", "").Body.String())
	require.Equal(t, 4, decode[domain.ConversionStatistics](t, a.do(t, http.MethodGet, "/stats", "")).TotalConversions)
}

func TestExportImport(t *testing.T) {
	src := setup(t)
	require.Equal(t, http.StatusOK, src.do(t, http.MethodPost, "/convert", `{"amount":10,"from":"USD","to":"EUR","record":true}`).Code)
	require.Equal(t, http.StatusCreated, src.do(t, http.MethodPost, "/favorites", `{"from":"USD","to":"JPY"}`).Code)

	rec := src.do(t, http.MethodGet, "/history/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "Date,Time,From Currency"))

	requireError(t, src.do(t, http.MethodGet, "/history/export?format=xml", ""), http.StatusBadRequest, "bad_request")

	rec = src.do(t, http.MethodGet, "/history/export?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "fxconvert-history.yaml")
	exported := rec.Body.String()

	dst := setup(t)
	rec = dst.do(t, http.MethodPost, "/history/import?mode=replace", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[application.ImportResult](t, rec)
	require.Equal(t, 1, res.HistoryAdded)
	require.Equal(t, 1, res.FavoritesAdded)
	require.Len(t, dst.history.GetHistory(application.HistoryFilter{}), 1)

	requireError(t, dst.do(t, http.MethodPost, "/history/import", "{{{"), http.StatusBadRequest, "invalid_import")
	requireError(t, dst.do(t, http.MethodPost, "/history/import?mode=merge", "{}"), http.StatusBadRequest, "bad_request")
}

func TestFavorites(t *testing.T) {
	a := setup(t)

	rec := a.do(t, http.MethodPost, "/favorites", `{"from":"usd","to":"eur","amount":"25"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fav := decode[domain.FavoritePair](t, rec)
	require.Equal(t, "25 USD → EUR", fav.Label)

	requireError(t, a.do(t, http.MethodPost, "/favorites", `{"from":"USD","to":"EUR","amount":25}`), http.StatusConflict, "duplicate_favorite")
	requireError(t, a.do(t, http.MethodPost, "/favorites", `{"from":"USD"}`), http.StatusBadRequest, "bad_request")
	requireError(t, a.do(t, http.MethodGet, "/favorites?sort=size", ""), http.StatusBadRequest, "bad_request")

	rec = a.do(t, http.MethodPost, "/favorites/"+fav.ID+"/use", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[outcomeBody](t, rec)
	require.True(t, out.Result.ConvertedAmount.Equal(decimal.NewFromInt(23)))
	require.Equal(t, domain.SourcePopup, out.Record.Source)

	favs := decode[[]domain.FavoritePair](t, a.do(t, http.MethodGet, "/favorites?sort=usage", ""))
	require.Len(t, favs, 1)
	require.Equal(t, 1, favs[0].UsageCount)

	require.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/favorites/"+fav.ID, "").Code)
	requireError(t, a.do(t, http.MethodDelete, "/favorites/"+fav.ID, ""), http.StatusNotFound, "not_found")
}

func TestSettings(t *testing.T) {
	a := setup(t)

	st := decode[domain.UserSettings](t, a.do(t, http.MethodGet, "/settings", ""))
	require.Equal(t, "USD", st.BaseCurrency)

	rec := a.do(t, http.MethodPut, "/settings/baseCurrency", `{"value":"gbp"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "GBP", decode[domain.UserSettings](t, rec).BaseCurrency)

	rec = a.do(t, http.MethodPut, "/settings/decimalPlaces", `{"value":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 3, *decode[domain.UserSettings](t, rec).DecimalPlaces)

	requireError(t, a.do(t, http.MethodPut, "/settings/fontSize", `{"value":1}`), http.StatusBadRequest, "unknown_setting")
	requireError(t, a.do(t, http.MethodPut, "/settings/theme", `{"value":"neon"}`), http.StatusBadRequest, "invalid_setting")

	rec = a.do(t, http.MethodPost, "/settings/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.DefaultSettings(), decode[domain.UserSettings](t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	a := setup(t, WithMetrics(metrics.New()))
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "").Code)
	rec := a.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `fxconvert_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{application.ErrBadRequest, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{application.ErrConflict, http.StatusConflict},
		{domain.ErrFavoritesFull, http.StatusUnprocessableEntity},
		{&application.AllProvidersExhaustedError{}, http.StatusServiceUnavailable},
		{domain.ErrPersistence, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		got, _ := statusFor(c.err)
		require.Equal(t, c.status, got, c.err.Error())
	}
}
