package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fxconvert/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultRateCacheTTL    = 10 * time.Minute
	DefaultProviderTimeout = 5 * time.Second

	// IdentitySource marks results where from and to are the same currency.
	IdentitySource = "identity"
)

var errRateBudget = errors.New("request budget exhausted")

// ProviderError is one failed attempt in the fallback chain.
type ProviderError struct {
	Provider string
	Err      error
}

func (e ProviderError) Error() string { return e.Provider + ": " + e.Err.Error() }

// AllProvidersExhaustedError is returned when every configured provider failed
// and no cached rate exists for the pair.
type AllProvidersExhaustedError struct {
	Pair     domain.Pair
	Failures []ProviderError
}

func (e *AllProvidersExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %s: no provider configured", domain.ErrAllProvidersExhausted, e.Pair)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s: %s", domain.ErrAllProvidersExhausted, e.Pair, strings.Join(parts, "; "))
}

func (e *AllProvidersExhaustedError) Unwrap() error { return domain.ErrAllProvidersExhausted }

type rateEntry struct {
	quote     domain.ExchangeRateQuote
	expiresAt time.Time
}

type source struct {
	src     RateSource
	limiter *rate.Limiter
}

// Resolver turns (amount, from, to) into a conversion using a cache-first,
// priority-ordered provider chain.
type Resolver struct {
	sources []source
	ttl     time.Duration
	timeout time.Duration
	clock   Clock
	metrics ResolverMetrics
	log     *zap.Logger

	mu    sync.RWMutex
	cache map[domain.Pair]rateEntry
	group singleflight.Group
}

type ResolverOption func(*Resolver)

func WithRateCacheTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func WithProviderTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithResolverClock(c Clock) ResolverOption { return func(r *Resolver) { r.clock = c } }
func WithResolverMetrics(m ResolverMetrics) ResolverOption { return func(r *Resolver) { r.metrics = m } }
func WithResolverLogger(l *zap.Logger) ResolverOption { return func(r *Resolver) { r.log = l } }

func NewResolver(sources []RateSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		ttl:     DefaultRateCacheTTL,
		timeout: DefaultProviderTimeout,
		cache:   map[domain.Pair]rateEntry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = realClock{}
	}
	if r.metrics == nil {
		r.metrics = NoopMetrics{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	for _, s := range sources {
		r.sources = append(r.sources, source{src: s, limiter: newLimiter(s.Info().RequestsPerMinute)})
	}
	sort.SliceStable(r.sources, func(i, j int) bool {
		return r.sources[i].src.Info().Priority < r.sources[j].src.Info().Priority
	})
	return r
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
}

// Convert resolves a rate for from→to and applies it to amount. The result
// keeps full precision.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (domain.ConversionResult, error) {
	if amount.IsNegative() {
		return domain.ConversionResult{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	q, offline, err := r.Quote(ctx, from, to)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	return domain.ConversionResult{
		OriginalAmount:  amount,
		FromCurrency:    q.FromCurrency,
		ConvertedAmount: amount.Mul(q.Rate),
		ToCurrency:      q.ToCurrency,
		Rate:            q.Rate,
		Timestamp:       q.Timestamp,
		Source:          q.Source,
		Cached:          q.Cached,
		Offline:         offline,
	}, nil
}

// Quote returns the rate for a pair. The boolean is true when the rate is a
// stale cache entry served because every provider failed.
func (r *Resolver) Quote(ctx context.Context, from, to string) (domain.ExchangeRateQuote, bool, error) {
	pair := domain.NewPair(from, to)
	if err := pair.Validate(); err != nil {
		return domain.ExchangeRateQuote{}, false, err
	}
	if pair.From == pair.To {
		return domain.ExchangeRateQuote{
			FromCurrency: pair.From,
			ToCurrency:   pair.To,
			Rate:         decimal.NewFromInt(1),
			Timestamp:    r.clock.Now(),
			Source:       IdentitySource,
		}, false, nil
	}

	entry, found := r.lookup(pair)
	if found && r.clock.Now().Before(entry.expiresAt) {
		r.metrics.CacheHit(pair.Key())
		q := entry.quote
		q.Cached = true
		return q, false, nil
	}
	r.metrics.CacheMiss(pair.Key())

	v, err, _ := r.group.Do(pair.Key(), func() (any, error) {
		return r.fetch(ctx, pair)
	})
	if err == nil {
		return v.(domain.ExchangeRateQuote), false, nil
	}
	if found {
		r.metrics.StaleServed(pair.Key())
		r.log.Warn("resolver.stale_served",
			zap.String("pair", pair.Key()),
			zap.Time("rate_time", entry.quote.Timestamp),
			zap.Error(err))
		q := entry.quote
		q.Cached = true
		return q, true, nil
	}
	return domain.ExchangeRateQuote{}, false, err
}

func (r *Resolver) fetch(ctx context.Context, pair domain.Pair) (domain.ExchangeRateQuote, error) {
	var failures []ProviderError
	for _, s := range r.sources {
		info := s.src.Info()
		if info.RequiresCredential && !info.Configured {
			continue
		}
		if err := ctx.Err(); err != nil {
			failures = append(failures, ProviderError{Provider: info.ID, Err: err})
			break
		}
		if !s.limiter.Allow() {
			r.metrics.ProviderCall(info.ID, "throttled", 0)
			failures = append(failures, ProviderError{Provider: info.ID, Err: fmt.Errorf("%w: %w", domain.ErrProviderFailure, errRateBudget)})
			continue
		}

		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		sample, err := s.src.FetchRate(cctx, pair.From, pair.To)
		cancel()
		took := time.Since(start)
		if err == nil && !sample.Rate.IsPositive() {
			err = fmt.Errorf("%w: non-positive rate %s", domain.ErrProviderFailure, sample.Rate)
		}
		if err != nil {
			r.metrics.ProviderCall(info.ID, "error", took)
			r.log.Warn("resolver.provider_failed",
				zap.String("provider", info.ID),
				zap.String("pair", pair.Key()),
				zap.Duration("took", took),
				zap.Error(err))
			failures = append(failures, ProviderError{Provider: info.ID, Err: err})
			continue
		}
		r.metrics.ProviderCall(info.ID, "ok", took)

		ts := sample.Timestamp
		if ts.IsZero() {
			ts = r.clock.Now()
		}
		q := domain.ExchangeRateQuote{
			FromCurrency: pair.From,
			ToCurrency:   pair.To,
			Rate:         sample.Rate,
			Timestamp:    ts,
			Source:       info.ID,
		}
		r.store(q)
		return q, nil
	}
	return domain.ExchangeRateQuote{}, &AllProvidersExhaustedError{Pair: pair, Failures: failures}
}

func (r *Resolver) lookup(p domain.Pair) (rateEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[p]
	return e, ok
}

func (r *Resolver) store(q domain.ExchangeRateQuote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[q.Pair()] = rateEntry{quote: q, expiresAt: r.clock.Now().Add(r.ttl)}
}

// Warm fetches every pair that has no fresh cache entry and returns how many
// were refreshed.
func (r *Resolver) Warm(ctx context.Context, pairs []domain.Pair) (int, error) {
	var (
		warmed int
		errs   []error
	)
	for _, p := range pairs {
		if p.From == p.To || p.Validate() != nil {
			continue
		}
		if e, ok := r.lookup(p); ok && r.clock.Now().Before(e.expiresAt) {
			continue
		}
		_, err, _ := r.group.Do(p.Key(), func() (any, error) { return r.fetch(ctx, p) })
		if err != nil {
			errs = append(errs, err)
			continue
		}
		warmed++
	}
	return warmed, errors.Join(errs...)
}

// Providers lists the rate sources in the order they are tried.
func (r *Resolver) Providers() []ProviderInfo {
	out := make([]ProviderInfo, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.src.Info()
	}
	return out
}
