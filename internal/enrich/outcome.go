// Package enrich fills in what scrapers leave out: missing body text,
// sentiment and geographic scope.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome carries an enrichment value. Fallback is set when Value is a
// default because the real producer failed; Reason says why.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Reason   string
}

func OK[T any](value T) Outcome[T] {
	return Outcome[T]{Value: value}
}

func Fallback[T any](value T, reason string) Outcome[T] {
	return Outcome[T]{Value: value, Fallback: true, Reason: reason}
}

// Bounded runs fn under timeout. A timeout, an error or a panic yields
// Fallback(fallback, reason); fn keeps running in the background when it
// ignores its context.
func Bounded[T any](ctx context.Context, timeout time.Duration, fallback T, fn func(context.Context) (T, error)) Outcome[T] {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		value, err := fn(callCtx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return OK(res.value)
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Fallback(fallback, fmt.Sprintf("timed out after %s", timeout))
		}
		return Fallback(fallback, res.err.Error())
	case <-callCtx.Done():
		return Fallback(fallback, fmt.Sprintf("timed out after %s", timeout))
	}
}
