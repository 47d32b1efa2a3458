package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ResolverCounters(t *testing.T) {
	m := New()
	m.CacheHit("USD→EUR")
	m.CacheHit("USD→EUR")
	m.CacheMiss("USD→EUR")
	m.StaleServed("EUR→GBP")
	m.ProviderCall("frankfurter", "ok", 120*time.Millisecond)
	m.ProviderCall("frankfurter", "error", time.Second)
	m.Conversion("context-menu", true)

	require.Equal(t, 2.0, testutil.ToFloat64(m.rateLookups.WithLabelValues("USD→EUR", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rateLookups.WithLabelValues("EUR→GBP", "stale")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("frankfurter", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("context-menu", "true")))
}

func TestMetrics_InstrumentUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/favorites/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Method(http.MethodGet, "/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favorites/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/favorites/{id}", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "fxconvert_http_requests_total"))
}
