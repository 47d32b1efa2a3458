package application

import (
	"context"
	"time"

	"fxconvert/internal/domain"

	"github.com/google/uuid"
)

// Persisted keys.
const (
	KeyConversionHistory = "conversionHistory"
	KeyConversionStats   = "conversionStats"
	KeyFavoritePairs     = "favoritePairs"
	KeyUserSettings      = "userSettings"
)

// KeyValueStore is the persistence capability behind the history and settings
// stores. Get returns only the keys that exist. Set writes all entries
// atomically.
type KeyValueStore interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
}

// ProviderInfo describes a rate source to the resolver.
type ProviderInfo struct {
	ID                 string `json:"id"`
	Priority           int    `json:"priority"`
	RequiresCredential bool   `json:"requiresCredential"`
	Configured         bool   `json:"configured"`
	RequestsPerMinute  int    `json:"requestsPerMinute"`
}

type RateSource interface {
	Info() ProviderInfo
	FetchRate(ctx context.Context, from, to string) (domain.RateSample, error)
}

// ResolverMetrics observes cache and provider behaviour.
type ResolverMetrics interface {
	CacheHit(pair string)
	CacheMiss(pair string)
	StaleServed(pair string)
	ProviderCall(provider, outcome string, took time.Duration)
}

type NoopMetrics struct{}

func (NoopMetrics) CacheHit(string) {}
func (NoopMetrics) CacheMiss(string) {}
func (NoopMetrics) StaleServed(string) {}
func (NoopMetrics) ProviderCall(string, string, time.Duration) {}

type Clock interface {
	Now() time.Time
}

type IDGen interface {
	NewID() string
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type defaultIDGen struct{}

func (defaultIDGen) NewID() string { return uuid.NewString() }
