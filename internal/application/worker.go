package application

import "context"

// Worker is a background loop: the rate warmer or the selection consumer.
// Start blocks until ctx is canceled or its input is exhausted.
type Worker interface {
	Start(ctx context.Context)
}
