package util

import (
	"context"
	"errors"
	"time"
)

// RetryWithBackoff calls fn up to maxTries times until it succeeds, waiting
// between attempts. The wait starts at delay and doubles after every
// failure. Context errors end the loop immediately. Used when waiting for
// MinIO, Postgres or RabbitMQ to come up next to the service.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := range maxTries {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err

		if delay <= 0 || i == maxTries-1 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return zero, lastErr
}

// RetryErrWithBackoff is RetryWithBackoff for functions that only return an error.
func RetryErrWithBackoff(ctx context.Context, maxTries int, delay time.Duration, fn func(context.Context) error) error {
	_, err := RetryWithBackoff(ctx, maxTries, delay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
