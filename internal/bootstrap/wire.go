//go:build wireinject

package bootstrap

import (
	"context"

	"fxconvert/internal/config"
	httpserver "fxconvert/internal/infrastructure/http"

	"github.com/google/wire"
)

var appSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStorage,
	ProvideIdempotency,
	ProvideCredentials,
	ProvideRateSources,
	ProvideResolver,
	ProvideHistory,
	ProvideSettings,
	ProvideConversionService,
	wire.Struct(new(App), "*"),
)

// InitApp builds the service graph + cleanup.
func InitApp(ctx context.Context, cfg config.Config) (*App, func(), error) {
	wire.Build(appSet)
	return nil, nil, nil
}

// InitAPI builds *httpserver.Server + cleanup.
func InitAPI(ctx context.Context, cfg config.Config) (*httpserver.Server, func(), error) {
	wire.Build(appSet, ProvideServer)
	return nil, nil, nil
}
