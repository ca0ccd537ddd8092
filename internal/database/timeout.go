package database

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/movie-tracker/internal/apperr"
)

// Bounded runs fn with a deadline of d on top of ctx. When the deadline ends
// the call, the error is reported as a timeout whatever the driver returned:
// a cancelled query may surface as an I/O or driver specific error. A zero d
// leaves ctx untouched.
func Bounded[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && apperr.KindOf(err) != apperr.KindTimeout {
		return v, apperr.Wrap(apperr.KindTimeout, "statement timed out", err)
	}
	return v, err
}

// BoundedExec is Bounded for calls without a result.
func BoundedExec(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	_, err := Bounded(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
