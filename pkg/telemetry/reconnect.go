package telemetry

import (
	"context"
	"log"
	"time"
)

// Reconnect keeps a feed alive: Run returns permanently when the dial fails
// or the connection drops, so it is re-invoked after every return, waiting
// backoff between attempts, until ctx is cancelled.
func Reconnect(ctx context.Context, run func(context.Context) error, backoff time.Duration) {
	for {
		if err := run(ctx); err != nil {
			log.Printf("telemetry feed disconnected: %s", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
