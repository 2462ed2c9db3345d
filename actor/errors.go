package actor

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core error taxonomy (spec §7). Callers use
// errors.Is against these rather than matching on message text; richer
// context, when present, is attached via fmt.Errorf's %w wrapping.
var (
	// ErrQueueFull is returned by a Block-policy queue offer once the
	// backend is at capacity.
	ErrQueueFull = errors.New("mailbox queue full")

	// ErrQueueClosed is returned when a send targets an already-closed
	// mailbox.
	ErrQueueClosed = errors.New("mailbox closed")

	// ErrQueueDisconnected is returned by a receive on a closed, empty
	// mailbox.
	ErrQueueDisconnected = errors.New("mailbox disconnected")

	// ErrAllocError names allocator exhaustion. The Grow-policy queue has
	// no failure path and never returns it.
	ErrAllocError = errors.New("mailbox allocator exhausted")

	// ErrSendFailed is returned by Ask when the envelope could not be
	// delivered to the target.
	ErrSendFailed = errors.New("ask: send failed")

	// ErrAskTimeout is the terminal state of an AskFuture whose timer
	// elapsed before a reply arrived.
	ErrAskTimeout = errors.New("ask: timed out")

	// ErrResponderDropped is the terminal state of an AskFuture whose
	// responder slot was dropped without a reply (e.g. the target actor
	// stopped before replying).
	ErrResponderDropped = errors.New("ask: responder dropped without replying")

	// ErrResponseCancelled is the terminal state of an AskFuture settled by
	// AskFuture.Cancel before a reply arrived. An Await whose ctx is
	// cancelled returns ctx.Err() and leaves the future pending.
	ErrResponseCancelled = errors.New("ask: response await cancelled")

	// ErrHandlerFailure is the result of an Ask whose reply is not of the
	// expected type R. Payloads from Directive.Fail or a recovered panic
	// are not wrapped in it; they reach the supervisor as a FailureInfo.
	ErrHandlerFailure = errors.New("actor: handler failure")

	// ErrPidParse is the umbrella sentinel for malformed Pid URIs; wrap it
	// together with ErrInvalidPathSegment or ErrInvalidPort for the exact
	// cause.
	ErrPidParse = errors.New("pid: parse error")

	// ErrInvalidPathSegment indicates a non-numeric actor-id segment in a
	// Pid URI.
	ErrInvalidPathSegment = errors.New("pid: invalid path segment")

	// ErrInvalidPort indicates a non-numeric or out-of-range port in a Pid
	// URI's host component.
	ErrInvalidPort = errors.New("pid: invalid port")

	// ErrDeadLetter is returned by Registry.Watch/Unwatch when a Pid does
	// not resolve to a live local actor. Undeliverable envelopes are
	// published to dead-letter listeners instead of returning an error.
	ErrDeadLetter = errors.New("registry: destination unresolved, routed to dead letters")

	// ErrSpawnError names a failed spawn. Spawn never returns it: Spawn has
	// no error result and gives every actor a fresh ActorId, so actors
	// have no names that could collide.
	ErrSpawnError = errors.New("actor: spawn failed")

	// ErrActorTerminated is returned by Registry.Watch/Unwatch when the
	// resolved actor does not support DeathWatch. A Tell to a stopped
	// actor returns ErrQueueClosed, not this error.
	ErrActorTerminated = errors.New("actor: already terminated")
)

// PidParseError wraps ErrPidParse (and, transitively, one of
// ErrInvalidPathSegment / ErrInvalidPort) with the offending input and
// segment for diagnostics.
type PidParseError struct {
	Input   string
	Segment string
	Cause   error
}

// Error implements the error interface.
func (e *PidParseError) Error() string {
	return fmt.Sprintf("pid: parse %q: %v (segment %q)", e.Input, e.Cause, e.Segment)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *PidParseError) Unwrap() error {
	return e.Cause
}

// Is reports every PidParseError as matching the ErrPidParse umbrella,
// alongside its specific Cause reached through Unwrap.
func (e *PidParseError) Is(target error) bool { return target == ErrPidParse }

// DeadLetterReason classifies why an envelope could not be delivered and
// was routed to the dead-letter hub instead.
type DeadLetterReason uint8

const (
	// DeadLetterUnregisteredPid means the Pid was never registered, or was
	// deregistered before delivery.
	DeadLetterUnregisteredPid DeadLetterReason = iota

	// DeadLetterTerminated means the target actor had already stopped.
	DeadLetterTerminated

	// DeadLetterDeliveryRejected means the target's mailbox refused the
	// envelope (e.g. closed between resolve and send).
	DeadLetterDeliveryRejected

	// DeadLetterNetworkUnreachable means the Pid resolved to a Remote
	// actor with no transport installed.
	DeadLetterNetworkUnreachable

	// DeadLetterCustom is a host-defined reason; see DeadLetterEnvelope.Detail.
	DeadLetterCustom
)

// String implements fmt.Stringer.
func (r DeadLetterReason) String() string {
	switch r {
	case DeadLetterUnregisteredPid:
		return "UnregisteredPid"
	case DeadLetterTerminated:
		return "Terminated"
	case DeadLetterDeliveryRejected:
		return "DeliveryRejected"
	case DeadLetterNetworkUnreachable:
		return "NetworkUnreachable"
	case DeadLetterCustom:
		return "Custom"
	default:
		return fmt.Sprintf("DeadLetterReason(%d)", uint8(r))
	}
}
