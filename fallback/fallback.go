// Package fallback provides a two stage pipeline that first tries a real
// source and substitutes a canned value whenever that attempt fails.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage produces a value or fails
type Stage[T any] func(ctx context.Context) (T, error)

// Chain runs primary and hands its result back on success. When primary
// returns an error or panics, canned is used instead. The returned function
// has no error path.
func Chain[T any](name string, primary Stage[T], canned func() T) func(ctx context.Context) T {
	return func(ctx context.Context) T {
		value, err := attempt(ctx, primary)
		if err != nil {
			slog.Warn("Falling back to canned source", "stage", name, "error", err)
			return canned()
		}
		return value
	}
}

func attempt[T any](ctx context.Context, primary Stage[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = fmt.Errorf("primary stage panicked: %v", r)
		}
	}()
	return primary(ctx)
}
