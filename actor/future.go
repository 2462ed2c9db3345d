package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Future represents the result of an asynchronous computation, ported from
// the teacher's actor package almost unchanged: it already matches the
// ask-future contract this runtime needs (await, transform, subscribe).
type Future[T any] interface {
	// Await blocks until the result is available or ctx is cancelled.
	Await(ctx context.Context) fn.Result[T]

	// ThenApply returns a new Future transforming this one's successful
	// result; a failed result or a cancelled ctx propagates unchanged.
	ThenApply(ctx context.Context, f func(T) T) Future[T]

	// OnComplete registers a callback invoked once the result is ready (or
	// ctx is cancelled first, in which case it receives ctx.Err()).
	OnComplete(ctx context.Context, f func(fn.Result[T]))
}

// future is the concrete Future implementation, signaled via a closed-once
// channel rather than a condition variable, matching the teacher's
// channel-first style elsewhere in this package. There is no standalone
// Promise type: AskFuture.complete and the metadataTable's respond closure
// already are the producer side this runtime needs, keyed off the ask's
// MetadataID rather than a handle kept by the caller.
type future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	result    fn.Result[T]
	completed bool
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

// complete sets the result exactly once; later calls are no-ops returning
// false.
func (f *future[T]) complete(result fn.Result[T]) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()

		return false
	}
	f.completed = true
	f.result = result
	f.mu.Unlock()

	close(f.done)

	return true
}

// Await implements Future.
func (f *future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		return f.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply implements Future.
func (f *future[T]) ThenApply(ctx context.Context, transform func(T) T) Future[T] {
	out := newFuture[T]()

	go func() {
		res := f.Await(ctx)

		v, err := res.Unpack()
		if err != nil {
			out.complete(fn.Err[T](err))

			return
		}

		out.complete(fn.Ok(transform(v)))
	}()

	return out
}

// OnComplete implements Future.
func (f *future[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		cb(f.Await(ctx))
	}()
}

var _ Future[int] = (*future[int])(nil)
