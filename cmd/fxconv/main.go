package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fxconvert/internal/bootstrap"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(bootstrap.InitApp).ExecuteContext(ctx)
	stop()

	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
