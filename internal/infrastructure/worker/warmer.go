package worker

import (
	"context"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"go.uber.org/zap"
)

var _ application.Worker = (*RateWarmer)(nil)

// RateCache is the resolver capability the warmer drives.
type RateCache interface {
	Warm(ctx context.Context, pairs []domain.Pair) (int, error)
}

// RateWarmer refreshes rates for the pairs users care about so conversions
// hit a fresh cache.
type RateWarmer struct {
	Rates RateCache
	Pairs func() []domain.Pair

	PollEvery time.Duration
	Log       *zap.Logger
}

func (w *RateWarmer) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = 5 * time.Minute
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("rate_warmer_started", zap.Duration("poll_every", w.PollEvery))
	w.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("rate_warmer_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *RateWarmer) tick(ctx context.Context, log *zap.Logger) {
	pairs := w.Pairs()
	if len(pairs) == 0 {
		return
	}
	n, err := w.Rates.Warm(ctx, pairs)
	if err != nil {
		log.Warn("warm_failed", zap.Int("pairs", len(pairs)), zap.Int("refreshed", n), zap.Error(err))
		return
	}
	log.Debug("warm_done", zap.Int("pairs", len(pairs)), zap.Int("refreshed", n))
}
