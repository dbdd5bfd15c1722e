// Package retry wraps backend calls in the bounded retry policy shared by
// every variant: exponential backoff, three attempts, independent of any
// per-recipe deadline.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.trai.ch/ladle/internal/core/domain"
)

const maxAttempts = 3

// Do runs op with exponential backoff. Conflict and corruption are not
// transient, so they stop retrying immediately; exhausting the attempts
// surfaces the last error to the caller rather than hanging.
func Do(ctx context.Context, op func() error) error {
	wrapped := func() (struct{}, error) {
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, domain.ErrConflict) ||
			errors.Is(err, domain.ErrCorrupt) ||
			errors.Is(err, domain.ErrEntryNotFound) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 100 * time.Millisecond

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(maxAttempts),
	)
	return err
}
