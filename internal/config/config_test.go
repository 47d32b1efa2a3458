package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, "memory", cfg.Storage)
	require.Equal(t, 10*time.Minute, cfg.RateCacheTTL)
	require.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	require.Equal(t, []string{"exchangeratesapi", "frankfurter", "openerapi", "currencyapi"}, cfg.Providers)
	require.Equal(t, 1000, cfg.MaxHistory)
	require.Equal(t, 50, cfg.MaxFavorites)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "SQLite")
	t.Setenv("PROVIDERS", " Frankfurter, ,fake ")
	t.Setenv("RATE_CACHE_TTL_MS", "1500")
	t.Setenv("MAX_FAVORITES", "nope")

	cfg := Load()
	require.Equal(t, "sqlite", cfg.Storage)
	require.Equal(t, []string{"frankfurter", "fake"}, cfg.Providers)
	require.Equal(t, 1500*time.Millisecond, cfg.RateCacheTTL)
	require.Equal(t, 50, cfg.MaxFavorites)
}
