package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fxconvert/internal/application"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fxconvert"

var _ application.ResolverMetrics = (*Metrics)(nil)

// Metrics owns a registry with the resolver and HTTP collectors.
type Metrics struct {
	Registry *prometheus.Registry

	rateLookups   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	conversions   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		rateLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "rate_lookups_total",
			Help:      "Rate lookups by cache outcome.",
		}, []string{"pair", "outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "provider_calls_total",
			Help:      "Rate provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of rate provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"provider"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "conversions_total",
			Help:      "Conversions recorded, by source.",
		}, []string{"source", "persisted"}),
	}
	m.Registry.MustRegister(
		m.rateLookups, m.providerCalls, m.providerTime,
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.conversions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) CacheHit(pair string)    { m.rateLookups.WithLabelValues(pair, "hit").Inc() }
func (m *Metrics) CacheMiss(pair string)   { m.rateLookups.WithLabelValues(pair, "miss").Inc() }
func (m *Metrics) StaleServed(pair string) { m.rateLookups.WithLabelValues(pair, "stale").Inc() }

func (m *Metrics) ProviderCall(provider, outcome string, took time.Duration) {
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	m.providerTime.WithLabelValues(provider).Observe(took.Seconds())
}

// Conversion counts a conversion that reached the history store.
func (m *Metrics) Conversion(source string, persisted bool) {
	m.conversions.WithLabelValues(source, strconv.FormatBool(persisted)).Inc()
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}
