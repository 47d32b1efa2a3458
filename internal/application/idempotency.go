package application

import "context"

// IdempotencyStore deduplicates repeated selection submissions for a while.
type IdempotencyStore interface {
	// TryReserve reports whether key was free and is now taken.
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release frees a key whose selection did not produce a conversion.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency accepts every key; used when no redis is configured.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }
