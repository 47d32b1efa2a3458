package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fxconvert/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type seqIDGen struct{ n atomic.Int64 }

func (g *seqIDGen) NewID() string { return fmt.Sprintf("id-%d", g.n.Add(1)) }

// fakeKV is an in-memory KeyValueStore with switchable failures.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	failGet bool
	failSet bool
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (f *fakeKV) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, ErrRepo
	}
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := f.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeKV) Set(_ context.Context, values map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return ErrRepo
	}
	f.sets++
	for k, v := range values {
		f.data[k] = v
	}
	return nil
}

func (f *fakeKV) setFailing(fail bool) {
	f.mu.Lock()
	f.failSet = fail
	f.mu.Unlock()
}

// fakeSource is a RateSource returning fixed rates per pair key.
type fakeSource struct {
	info  ProviderInfo
	rates map[string]string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (f *fakeSource) Info() ProviderInfo { return f.info }

func (f *fakeSource) FetchRate(ctx context.Context, from, to string) (domain.RateSample, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.RateSample{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.RateSample{}, f.err
	}
	r, ok := f.rates[domain.NewPair(from, to).Key()]
	if !ok {
		return domain.RateSample{}, fmt.Errorf("%w: no rate for %s/%s", domain.ErrProviderFailure, from, to)
	}
	return domain.RateSample{Rate: decimal.RequireFromString(r)}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
