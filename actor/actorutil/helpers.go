// Package actorutil bundles convenience free functions over this module's
// Ref/AskRef primitives: fan-out asks, first-success races, and the
// round-robin Pool built on top of them (DESIGN.md: grounded on the
// teacher's internal/actorutil package, retargeted from its
// darepo-client/baselib/actor types onto actor.Ref/actor.AskRef).
package actorutil

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/actorcore/actor"
)

// AskAwait sends buildRequest's result to ref and blocks until the future
// resolves, unpacking its fn.Result into a plain (value, error) pair.
func AskAwait[U, R any](
	ctx context.Context, ref actor.Ref[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) (R, error) {

	future := actor.AskRef[U, R](ctx, ref, buildRequest, priority, timeout)

	return future.Await(ctx).Unpack()
}

// AskAwaitTyped is AskAwait followed by a type assertion down to T, for
// callers whose reply type R is itself a sum type (e.g. an interface) and
// who only care about one concrete case.
func AskAwaitTyped[U, R, T any](
	ctx context.Context, ref actor.Ref[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) (T, error) {

	resp, err := AskAwait[U, R](ctx, ref, buildRequest, priority, timeout)
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := any(resp).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("actorutil: unexpected response type %T, want %T", resp, zero)
	}

	return typed, nil
}

// TellAll enqueues payload on every ref in refs, ignoring individual send
// failures (a stopped or dead-lettered ref just drops its copy).
func TellAll[U any](ctx context.Context, refs []actor.Ref[U], payload U) {
	for _, ref := range refs {
		_ = ref.Tell(ctx, payload)
	}
}

// ParallelAsk fires one ask per (refs[i], buildRequests[i]) pair
// concurrently and waits for every future to settle.
func ParallelAsk[U, R any](
	ctx context.Context, refs []actor.Ref[U],
	buildRequests []func(actor.MetadataID) U, priority int8, timeout time.Duration,
) []fn.Result[R] {

	if len(refs) != len(buildRequests) {
		panic("actorutil: refs and buildRequests must have the same length")
	}

	futures := make([]*actor.AskFuture[R], len(refs))
	for i, ref := range refs {
		futures[i] = actor.AskRef[U, R](ctx, ref, buildRequests[i], priority, timeout)
	}

	results := make([]fn.Result[R], len(futures))
	for i, f := range futures {
		results[i] = f.Await(ctx)
	}

	return results
}

// ParallelAskSame is ParallelAsk with the same request builder sent to
// every ref (a broadcast-ask).
func ParallelAskSame[U, R any](
	ctx context.Context, refs []actor.Ref[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) []fn.Result[R] {

	futures := make([]*actor.AskFuture[R], len(refs))
	for i, ref := range refs {
		futures[i] = actor.AskRef[U, R](ctx, ref, buildRequest, priority, timeout)
	}

	results := make([]fn.Result[R], len(futures))
	for i, f := range futures {
		results[i] = f.Await(ctx)
	}

	return results
}

// FirstSuccess asks every ref in refs with the same request and returns the
// first successful reply, cancelling the outstanding asks once one arrives.
// Returns the last observed error if every ask fails.
func FirstSuccess[U, R any](
	ctx context.Context, refs []actor.Ref[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) (R, error) {

	if len(refs) == 0 {
		var zero R
		return zero, fmt.Errorf("actorutil: no actors provided")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan fn.Result[R], len(refs))

	for _, ref := range refs {
		ref := ref
		go func() {
			future := actor.AskRef[U, R](raceCtx, ref, buildRequest, priority, timeout)
			result := future.Await(raceCtx)

			select {
			case resultCh <- result:
			case <-raceCtx.Done():
			}
		}()
	}

	var lastErr error
	for received := 0; received < len(refs); received++ {
		select {
		case result := <-resultCh:
			val, err := result.Unpack()
			if err == nil {
				return val, nil
			}
			lastErr = err

		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}

	var zero R
	if lastErr == nil {
		lastErr = fmt.Errorf("actorutil: all asks failed")
	}

	return zero, lastErr
}

// MapResponses transforms every successful result with mapFn, leaving
// failures untouched.
func MapResponses[R, T any](results []fn.Result[R], mapFn func(R) T) []fn.Result[T] {
	mapped := make([]fn.Result[T], len(results))

	for i, r := range results {
		val, err := r.Unpack()
		if err != nil {
			mapped[i] = fn.Err[T](err)
			continue
		}
		mapped[i] = fn.Ok(mapFn(val))
	}

	return mapped
}

// CollectSuccesses returns the unwrapped values of every successful result,
// dropping failures.
func CollectSuccesses[R any](results []fn.Result[R]) []R {
	successes := make([]R, 0, len(results))

	for _, r := range results {
		if val, err := r.Unpack(); err == nil {
			successes = append(successes, val)
		}
	}

	return successes
}

// AllSucceeded reports whether every result in results is a success.
func AllSucceeded[R any](results []fn.Result[R]) bool {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return false
		}
	}

	return true
}

// FirstError returns the first error encountered in results, or nil if all
// succeeded.
func FirstError[R any](results []fn.Result[R]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}

	return nil
}
