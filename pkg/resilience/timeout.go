package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. If the function does not complete in time, an error
// wrapping both ErrTimeout and context.DeadlineExceeded is returned.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is WithTimeout for functions that produce a value. fn keeps running
// in the background after a timeout; it must honour ctx to release its
// resources.
func Call[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{value: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v): %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
}
