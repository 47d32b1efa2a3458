package worker

import (
	"context"
	"fmt"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/infrastructure/logx"

	"go.uber.org/zap"
)

var _ application.Worker = (*ChanWorker)(nil)

// SelectionMsg is one selection to convert. Done, when set, receives the
// outcome.
type SelectionMsg struct {
	Selection application.Selection
	TraceID   string
	Done      chan<- SelectionResult
}

type SelectionResult struct {
	Outcome *application.ConversionOutcome
	Err     error
}

// SelectionConverter is the service capability the worker needs.
type SelectionConverter interface {
	ConvertSelection(ctx context.Context, sel application.Selection) (*application.ConversionOutcome, error)
}

type ChanWorker struct {
	svc     SelectionConverter
	jobs    <-chan SelectionMsg
	timeout time.Duration
}

func NewChanWorker(svc SelectionConverter, jobs <-chan SelectionMsg, timeout time.Duration) *ChanWorker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ChanWorker{svc: svc, jobs: jobs, timeout: timeout}
}

func (w *ChanWorker) Start(ctx context.Context) {
	log := logx.L().With(zap.String("worker", "chan"))
	for {
		select {
		case <-ctx.Done():
			log.Info("chan_worker.stop")
			return
		case m, ok := <-w.jobs:
			if !ok {
				log.Info("chan_worker.closed")
				return
			}
			w.processOne(ctx, log, m)
		}
	}
}

func (w *ChanWorker) processOne(ctx context.Context, log *zap.Logger, m SelectionMsg) {
	var res SelectionResult
	defer func() {
		if r := recover(); r != nil {
			log.Warn("chan_worker.panic", zap.Any("r", r), zap.String("trace_id", m.TraceID))
			res = SelectionResult{Err: fmt.Errorf("panic: %v", r)}
		}
		if m.Done != nil {
			m.Done <- res
		}
	}()
	c, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	out, err := w.svc.ConvertSelection(c, m.Selection)
	res = SelectionResult{Outcome: out, Err: err}
	switch {
	case err != nil:
		log.Warn("chan_worker.convert_failed", zap.String("trace_id", m.TraceID), zap.Error(err))
	case out == nil:
		log.Debug("chan_worker.no_amount", zap.String("trace_id", m.TraceID))
	default:
		log.Info("chan_worker.converted",
			zap.String("trace_id", m.TraceID),
			zap.String("from", out.Result.FromCurrency),
			zap.String("to", out.Result.ToCurrency),
			zap.String("display", out.Display))
	}
}
