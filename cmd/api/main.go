package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"fxconvert/internal/bootstrap"
	"fxconvert/internal/config"
	infraconfig "fxconvert/internal/infrastructure/config"
	httpserver "fxconvert/internal/infrastructure/http"
	"fxconvert/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = infraconfig.DefaultHTTPPort
	}
	addr := ":" + port

	srv, cleanup, err := bootstrap.InitAPI(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	// The API process does not run workers; start cmd/worker separately.
	server := &http.Server{
		Addr:    addr,
		Handler: httpserver.NewRouter(srv),
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr), zap.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
