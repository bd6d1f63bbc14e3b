// Package persistence carries the contracts shared by every aggregate
// repository: version-checked saves and the retry loop built on top of them.
package persistence

import (
	"context"
	"errors"
)

// ErrStaleVersion reports that a save lost the optimistic-concurrency race.
// Callers reload the aggregate and reapply the operation.
var ErrStaleVersion = errors.New("stale_version")

// ErrNotFound reports that no row matched the requested identifier.
var ErrNotFound = errors.New("not_found")

const defaultRetries = 3

// WithRetry runs a load-mutate-save cycle, retrying when the save reports a
// stale version. Domain errors pass through untouched.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < defaultRetries; attempt++ {
		if err = fn(ctx); !errors.Is(err, ErrStaleVersion) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
