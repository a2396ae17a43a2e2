package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retry calls op up to attempts times with exponential backoff starting at
// wait. Errors wrapped with permanent stop immediately.
func retry(ctx context.Context, attempts int, wait time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = wait
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
	return backoff.Retry(op, b)
}

func permanent(err error) error {
	return backoff.Permanent(err)
}
