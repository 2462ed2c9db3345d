package actor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// AskState is the terminal-state enum for an AskFuture, exposed for
// introspection (tests, telemetry) alongside the fn.Result the Future
// itself carries.
type AskState uint8

const (
	AskPending AskState = iota
	AskReady
	AskCancelled
	AskResponderDropped
)

// String implements fmt.Stringer.
func (s AskState) String() string {
	switch s {
	case AskPending:
		return "Pending"
	case AskReady:
		return "Ready"
	case AskCancelled:
		return "Cancelled"
	case AskResponderDropped:
		return "ResponderDropped"
	default:
		return "Unknown"
	}
}

// AskFuture is the handle returned by Ask: a Future[R] that additionally
// exposes which terminal state it settled into. Exactly one terminal
// transition from Pending ever takes effect; every other attempt is a
// no-op, enforced by the embedded future's completed-once guard.
type AskFuture[R any] struct {
	fut   *future[R]
	state atomic.Int32
}

func newAskFuture[R any]() *AskFuture[R] {
	return &AskFuture[R]{}
}

func (a *AskFuture[R]) init() {
	if a.fut == nil {
		a.fut = newFuture[R]()
	}
}

// complete attempts the terminal transition; returns true iff this call won
// the race to complete the future.
func (a *AskFuture[R]) complete(st AskState, result fn.Result[R]) bool {
	a.init()
	if !a.fut.complete(result) {
		return false
	}
	a.state.Store(int32(st))

	return true
}

// State returns the current terminal state, or AskPending if no terminal
// transition has happened yet.
func (a *AskFuture[R]) State() AskState {
	return AskState(a.state.Load())
}

// Await implements Future.
func (a *AskFuture[R]) Await(ctx context.Context) fn.Result[R] {
	a.init()

	return a.fut.Await(ctx)
}

// ThenApply implements Future.
func (a *AskFuture[R]) ThenApply(ctx context.Context, f func(R) R) Future[R] {
	a.init()

	return a.fut.ThenApply(ctx, f)
}

// OnComplete implements Future.
func (a *AskFuture[R]) OnComplete(ctx context.Context, f func(fn.Result[R])) {
	a.init()
	a.fut.OnComplete(ctx, f)
}

// Cancel transitions Pending -> Cancelled. A no-op if the future has
// already settled (e.g. the reply had already arrived).
func (a *AskFuture[R]) Cancel() {
	a.complete(AskCancelled, fn.Err[R](ErrResponseCancelled))
}

var _ Future[int] = (*AskFuture[int])(nil)

// AskTarget is the minimal capability Ask needs from a target actor's
// handle: accept one envelope carrying ask metadata onto its mailbox.
type AskTarget[U any] interface {
	TellEnvelope(ctx context.Context, msg MessageEnvelope[U], priority int8) error
}

// Ask sends buildRequest(metadataID) to target and returns a future that
// resolves once the target replies via RespondWith, the timeout elapses, the
// responder is dropped, or the send itself fails. timeout <= 0 means no
// timeout is armed (the future waits until ctx is cancelled or a terminal
// transition otherwise occurs).
func Ask[U, R any](
	ctx context.Context, target AskTarget[U], table *metadataTable,
	buildRequest func(MetadataID) U, priority int8, timeout time.Duration,
) *AskFuture[R] {
	af := newAskFuture[R]()
	af.init()

	id := table.Allocate(
		func(reply any) {
			r, ok := reply.(R)
			if !ok {
				af.complete(AskReady, fn.Err[R](ErrHandlerFailure))

				return
			}
			af.complete(AskReady, fn.Ok(r))
		},
		func() {
			af.complete(AskResponderDropped, fn.Err[R](ErrResponderDropped))
		},
	)

	req := buildRequest(id)
	env := UserEnvelopeWithMetadata(req, id)

	if err := target.TellEnvelope(ctx, env, priority); err != nil {
		table.Discard(id)
		af.complete(AskReady, fn.Err[R](fmt.Errorf("%w: %v", ErrSendFailed, err)))

		return af
	}

	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			if _, ok := table.Take(id); ok {
				af.complete(AskCancelled, fn.Err[R](ErrAskTimeout))
			}
		})

		go func() {
			<-af.fut.done
			timer.Stop()
		}()
	}

	return af
}

// RespondWith completes the AskFuture awaiting the responder slot
// referenced by id with reply. It is a no-op if the slot already settled
// (timed out, was cancelled, or was already replied to).
func RespondWith[R any](table *metadataTable, id MetadataID, reply R) {
	respond, ok := table.Take(id)
	if !ok {
		return
	}

	respond(reply)
}
