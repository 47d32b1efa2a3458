package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fxconvert/internal/application"
	"fxconvert/internal/config"
	"fxconvert/internal/domain"
	"fxconvert/internal/infrastructure/credentials"
	httpserver "fxconvert/internal/infrastructure/http"
	"fxconvert/internal/infrastructure/httpx"
	"fxconvert/internal/infrastructure/logx"
	"fxconvert/internal/infrastructure/memkv"
	"fxconvert/internal/infrastructure/metrics"
	"fxconvert/internal/infrastructure/pg"
	"fxconvert/internal/infrastructure/provider"
	redisstore "fxconvert/internal/infrastructure/redis"
	"fxconvert/internal/infrastructure/sqlite"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// App is the service graph shared by the API, the worker and the CLI.
type App struct {
	Config      config.Config
	Log         *zap.Logger
	Storage     Storage
	Credentials *credentials.Store
	Metrics     *metrics.Metrics
	Resolver    *application.Resolver
	History     *application.HistoryStore
	Settings    *application.SettingsStore
	Service     *application.ConversionService
}

// Storage is the KV backend picked at startup plus its readiness check.
type Storage struct {
	KV      application.KeyValueStore
	Backend string
	Ping    func(context.Context) error
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideMetrics() *metrics.Metrics { return metrics.New() }

// ProvideStorage opens the backend named by STORAGE. A backend that cannot be
// reached degrades to memory with a warning.
func ProvideStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (Storage, func(), error) {
	st, cleanup, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Warn("storage_unavailable_falling_back_to_memory", zap.String("storage", cfg.Storage), zap.Error(err))
		return memoryStorage(), func() {}, nil
	}
	log.Info("storage_ready", zap.String("storage", st.Backend))
	return st, cleanup, nil
}

func memoryStorage() Storage {
	return Storage{KV: memkv.New(), Backend: "memory"}
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (Storage, func(), error) {
	switch cfg.Storage {
	case "", "memory":
		return memoryStorage(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		kv := redisstore.NewKV(client)
		if err := kv.Ping(ctx); err != nil {
			_ = client.Close()
			return Storage{}, nil, fmt.Errorf("redis ping: %w", err)
		}
		return Storage{KV: kv, Backend: "redis", Ping: kv.Ping}, func() { _ = client.Close() }, nil
	case "pg":
		if cfg.DatabaseURL == "" {
			return Storage{}, nil, ErrMissingDBURL
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Storage{}, nil, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Storage{}, nil, err
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Storage{KV: pg.NewKVStore(db), Backend: "pg", Ping: db.Ping}, cleanup, nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			return Storage{}, nil, err
		}
		cleanup := func() {
			log.Info("closing sqlite")
			_ = s.Close()
		}
		return Storage{KV: s, Backend: "sqlite", Ping: s.Ping}, cleanup, nil
	default:
		return Storage{}, nil, fmt.Errorf("unknown STORAGE=%q", cfg.Storage)
	}
}

func ProvideIdempotency(cfg config.Config) (application.IdempotencyStore, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return application.NoopIdempotency{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	return redisstore.New(client, cfg.RedisTTL), func() { _ = client.Close() }, nil
}

func ProvideCredentials(cfg config.Config) *credentials.Store {
	return credentials.New(map[string]string{
		provider.IDExchangeRatesAPI: cfg.ExchangeAPIKey,
		provider.IDCurrencyAPI:      cfg.CurrencyAPIKey,
	})
}

// ProvideRateSources builds the providers listed in PROVIDERS; list order is
// priority order.
func ProvideRateSources(cfg config.Config, creds *credentials.Store, log *zap.Logger) []application.RateSource {
	client := &httpx.Client{HTTP: &http.Client{Timeout: cfg.ProviderTimeout}}
	var out []application.RateSource
	for i, id := range cfg.Providers {
		prio := i + 1
		switch id {
		case provider.IDExchangeRatesAPI:
			out = append(out, &provider.ExchangeRatesAPIProvider{
				BaseURL: cfg.ExchangeAPIBase, APIKey: creds.Key(id), Priority: prio,
				RequestsPerMinute: cfg.ProviderBudgetRP, Client: client, Log: log,
			})
		case provider.IDFrankfurter:
			out = append(out, &provider.FrankfurterProvider{
				BaseURL: cfg.FrankfurterBase, Priority: prio,
				RequestsPerMinute: cfg.ProviderBudgetRP, Client: client, Log: log,
			})
		case provider.IDOpenER:
			out = append(out, &provider.OpenERProvider{
				BaseURL: cfg.OpenERBase, Priority: prio,
				RequestsPerMinute: cfg.ProviderBudgetRP, Client: client, Log: log,
			})
		case provider.IDCurrencyAPI:
			out = append(out, &provider.CurrencyAPIProvider{
				BaseURL: cfg.CurrencyAPIBase, APIKey: creds.Key(id), Priority: prio,
				RequestsPerMinute: cfg.ProviderBudgetRP, Client: client, Log: log,
			})
		case provider.IDFake:
			out = append(out, provider.NewFake(prio, nil))
		default:
			log.Warn("unknown_provider_skipped", zap.String("provider", id))
		}
	}
	return out
}

func ProvideResolver(cfg config.Config, sources []application.RateSource, m *metrics.Metrics, log *zap.Logger) *application.Resolver {
	return application.NewResolver(sources,
		application.WithRateCacheTTL(cfg.RateCacheTTL),
		application.WithProviderTimeout(cfg.ProviderTimeout),
		application.WithResolverMetrics(m),
		application.WithResolverLogger(log),
	)
}

// ProvideHistory builds the history store and loads persisted state. A
// storage read failure leaves the session with an empty in-memory history.
func ProvideHistory(ctx context.Context, st Storage, cfg config.Config, log *zap.Logger) (*application.HistoryStore, error) {
	h := application.NewHistoryStore(st.KV,
		application.WithHistoryLimits(cfg.MaxHistory, cfg.MaxFavorites),
		application.WithHistoryLogger(log),
	)
	if err := h.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			return nil, fmt.Errorf("load history: %w", err)
		}
		log.Warn("history_unavailable_starting_empty", zap.String("backend", st.Backend), zap.Error(err))
	}
	return h, nil
}

// ProvideSettings falls back to default settings when storage cannot be read.
func ProvideSettings(ctx context.Context, st Storage, log *zap.Logger) (*application.SettingsStore, error) {
	s := application.NewSettingsStore(st.KV, log)
	if err := s.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		log.Warn("settings_unavailable_using_defaults", zap.String("backend", st.Backend), zap.Error(err))
	}
	return s, nil
}

func ProvideConversionService(r *application.Resolver, h *application.HistoryStore, s *application.SettingsStore, idem application.IdempotencyStore, m *metrics.Metrics, log *zap.Logger) *application.ConversionService {
	return application.NewConversionService(r, h, s, idem,
		application.WithObserver(m),
		application.WithLogger(log),
	)
}

func ProvideServer(svc *application.ConversionService, h *application.HistoryStore, s *application.SettingsStore, r *application.Resolver, st Storage, m *metrics.Metrics) *httpserver.Server {
	opts := []httpserver.ServerOption{httpserver.WithMetrics(m)}
	if st.Ping != nil {
		opts = append(opts, httpserver.WithReadiness(st.Ping))
	}
	return httpserver.NewServer(svc, h, s, r, opts...)
}
