package bootstrap

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"fxconvert/internal/application"
	"fxconvert/internal/config"
	"fxconvert/internal/domain"
	infraconfig "fxconvert/internal/infrastructure/config"
	"fxconvert/internal/infrastructure/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WorkerApp func(ctx context.Context) error

// InitWorkerApp builds the worker selected by WORKER_TYPE. "selections" reads
// one selection per line from in and writes one JSON result per line to out.
func InitWorkerApp(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) (WorkerApp, func(), error) {
	app, cleanup, err := InitApp(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init app: %w", err)
	}

	switch cfg.WorkerType {
	case "", "warmer":
		w := &worker.RateWarmer{
			Rates: app.Resolver,
			Pairs: func() []domain.Pair {
				return application.WarmPairs(app.History, app.Settings, cfg.WarmPairsLimit)
			},
			PollEvery: cfg.WarmInterval,
			Log:       app.Log,
		}
		return func(ctx context.Context) error { w.Start(ctx); return nil }, cleanup, nil

	case "selections":
		jobs := make(chan worker.SelectionMsg, infraconfig.DefaultSelectionBuffer)
		w := worker.NewChanWorker(app.Service, jobs, cfg.RequestTimeout)
		run := func(ctx context.Context) error {
			feedErr := make(chan error, 1)
			go func() { feedErr <- feedSelections(ctx, in, out, jobs, app.Log) }()
			w.Start(ctx)
			select {
			case err := <-feedErr:
				return err
			case <-ctx.Done():
				return nil
			}
		}
		return run, cleanup, nil

	default:
		cleanup()
		return nil, nil, fmt.Errorf("unsupported WORKER_TYPE=%q", cfg.WorkerType)
	}
}

type selectionLine struct {
	Text           string                  `json:"text"`
	Webpage        string                  `json:"webpage"`
	Source         domain.ConversionSource `json:"source"`
	TargetCurrency string                  `json:"targetCurrency"`
	IdempotencyKey string                  `json:"idempotencyKey"`
	Auto           bool                    `json:"auto"`
}

type resultLine struct {
	TraceID string                         `json:"traceId"`
	Found   bool                           `json:"found"`
	Outcome *application.ConversionOutcome `json:"outcome,omitempty"`
	Error   string                         `json:"error,omitempty"`
}

// feedSelections turns input lines into jobs. A line is either a JSON object
// or plain selected text. jobs is closed when input ends.
func feedSelections(ctx context.Context, in io.Reader, out io.Writer, jobs chan<- worker.SelectionMsg, log *zap.Logger) error {
	defer close(jobs)
	enc := json.NewEncoder(out)
	br := bufio.NewReader(in)
	for {
		raw, tooLong, err := readLine(br, infraconfig.DefaultMaxSelectionLine)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read selections: %w", err)
		}
		if tooLong {
			log.Warn("selection_line_too_long", zap.Int("max_bytes", infraconfig.DefaultMaxSelectionLine))
			_ = enc.Encode(resultLine{Error: "selection line too long"})
			continue
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}
		sel := selectionLine{Text: line}
		if strings.HasPrefix(line, "{") {
			sel = selectionLine{}
			if err := json.Unmarshal([]byte(line), &sel); err != nil {
				log.Warn("selection_line_invalid", zap.Error(err))
				_ = enc.Encode(resultLine{Error: "invalid selection line"})
				continue
			}
		}
		reply := make(chan worker.SelectionResult, 1)
		msg := worker.SelectionMsg{
			Selection: application.Selection{
				Text:           sel.Text,
				Webpage:        sel.Webpage,
				Source:         sel.Source,
				TargetCurrency: sel.TargetCurrency,
				IdempotencyKey: sel.IdempotencyKey,
				Auto:           sel.Auto,
			},
			TraceID: uuid.NewString(),
			Done:    reply,
		}
		select {
		case <-ctx.Done():
			return nil
		case jobs <- msg:
		}
		var res worker.SelectionResult
		select {
		case <-ctx.Done():
			return nil
		case res = <-reply:
		}
		rl := resultLine{TraceID: msg.TraceID, Found: res.Outcome != nil, Outcome: res.Outcome}
		if res.Err != nil {
			rl.Error = res.Err.Error()
		}
		if err := enc.Encode(rl); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is drained and reported with tooLong set and no content.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if len(line) > 0 || tooLong {
				return line, tooLong, nil
			}
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				line, tooLong = nil, true
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}
