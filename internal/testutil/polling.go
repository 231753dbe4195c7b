// Package testutil holds helpers for tests that wait on asynchronous
// ticking.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/tickbt/internal/behavior"
)

// Poll checks condition every interval until it holds, ctx is done, or
// timeout elapses.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
	}
	return err
}

// WaitForState polls getter until predicate accepts its value. On timeout
// or cancellation the zero value is returned with an error.
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var zero T
	for {
		if v := getter(); predicate(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-deadline.C:
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", zero, timeout)
		case <-ticker.C:
		}
	}
}

// TickUntil ticks tree with dt until done reports true, at most maxTicks
// times, and returns the number of ticks taken. done is checked before
// every tick.
func TickUntil(tree *behavior.Tree, dt time.Duration, maxTicks int, done func() bool) (int, error) {
	for i := range maxTicks {
		if done() {
			return i, nil
		}
		if err := tree.Tick(dt); err != nil {
			return i + 1, err
		}
	}
	if done() {
		return maxTicks, nil
	}
	return maxTicks, fmt.Errorf("tree %s: condition not met after %d ticks", tree.ID(), maxTicks)
}
