package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fxconvert/internal/bootstrap"
	"fxconvert/internal/config"
	"fxconvert/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	run, cleanup, err := bootstrap.InitWorkerApp(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	defer cleanup()

	log.Info("worker starting", zap.String("type", cfg.WorkerType))
	if err := run(ctx); err != nil {
		log.Error("worker exited", zap.Error(err))
	}
	log.Info("worker stopped")
}
