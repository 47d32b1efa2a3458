package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"

	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	mu    sync.Mutex
	calls [][]domain.Pair
	err   error
}

func (c *recordingCache) Warm(_ context.Context, pairs []domain.Pair) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, pairs)
	return len(pairs), c.err
}

func (c *recordingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestRateWarmer_WarmsOnStartAndTick(t *testing.T) {
	cache := &recordingCache{err: errors.New("offline")}
	w := &RateWarmer{
		Rates:     cache,
		Pairs:     func() []domain.Pair { return []domain.Pair{domain.NewPair("USD", "EUR")} },
		PollEvery: 10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx); close(done) }()

	require.Eventually(t, func() bool { return cache.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	require.Equal(t, domain.NewPair("USD", "EUR"), cache.calls[0][0])
}

func TestRateWarmer_SkipsEmptyPairs(t *testing.T) {
	cache := &recordingCache{}
	w := &RateWarmer{Rates: cache, Pairs: func() []domain.Pair { return nil }, PollEvery: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	require.Zero(t, cache.count())
}

type stubConverter struct {
	panicOn string
}

func (s stubConverter) ConvertSelection(_ context.Context, sel application.Selection) (*application.ConversionOutcome, error) {
	switch sel.Text {
	case s.panicOn:
		panic("boom")
	case "none":
		return nil, nil
	case "bad":
		return nil, domain.ErrAllProvidersExhausted
	}
	return &application.ConversionOutcome{Display: sel.Text}, nil
}

func TestChanWorker_RepliesAndSurvivesPanics(t *testing.T) {
	jobs := make(chan SelectionMsg)
	w := NewChanWorker(stubConverter{panicOn: "explode"}, jobs, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { w.Start(ctx); close(done) }()

	send := func(text string) SelectionResult {
		reply := make(chan SelectionResult, 1)
		jobs <- SelectionMsg{Selection: application.Selection{Text: text}, Done: reply}
		return <-reply
	}

	res := send("$5")
	require.NoError(t, res.Err)
	require.Equal(t, "$5", res.Outcome.Display)

	res = send("explode")
	require.ErrorContains(t, res.Err, "panic: boom")

	res = send("none")
	require.NoError(t, res.Err)
	require.Nil(t, res.Outcome)

	res = send("bad")
	require.ErrorIs(t, res.Err, domain.ErrAllProvidersExhausted)

	close(jobs)
	<-done
}
