package actor

import "fmt"

// Channel selects which mailbox lane an envelope is delivered to. Control
// messages are always drained before Regular ones, regardless of relative
// priority.
type Channel uint8

const (
	// ChannelRegular is the default lane for ordinary user traffic.
	ChannelRegular Channel = iota

	// ChannelControl is the lane used for system signals and any user
	// traffic explicitly routed ahead of regular work.
	ChannelControl
)

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case ChannelRegular:
		return "regular"
	case ChannelControl:
		return "control"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// PriorityEnvelope wraps a payload of type M with the routing metadata a
// mailbox needs to order it: a priority (higher runs first within a lane)
// and a channel (control always precedes regular).
type PriorityEnvelope[M any] struct {
	Message  M
	Priority int8
	Channel  Channel
}

// NewPriorityEnvelope builds a PriorityEnvelope on the regular channel at
// the given priority.
func NewPriorityEnvelope[M any](msg M, priority int8) PriorityEnvelope[M] {
	return PriorityEnvelope[M]{Message: msg, Priority: priority, Channel: ChannelRegular}
}

// IntoPriorityEnvelope returns a copy of the envelope on the regular channel
// at the given priority.
func (e PriorityEnvelope[M]) IntoPriorityEnvelope(priority int8) PriorityEnvelope[M] {
	e.Priority = priority
	e.Channel = ChannelRegular

	return e
}

// IntoControlEnvelope returns a copy of the envelope on the control channel
// at the given priority.
func (e PriorityEnvelope[M]) IntoControlEnvelope(priority int8) PriorityEnvelope[M] {
	e.Priority = priority
	e.Channel = ChannelControl

	return e
}

// MapPriorityEnvelope transforms the payload of an envelope while preserving
// its priority and channel. Defined as a free function since Go methods
// cannot introduce new type parameters.
func MapPriorityEnvelope[M, N any](e PriorityEnvelope[M], f func(M) N) PriorityEnvelope[N] {
	return PriorityEnvelope[N]{
		Message:  f(e.Message),
		Priority: e.Priority,
		Channel:  e.Channel,
	}
}

// SystemMessage is the closed set of control-channel lifecycle signals a
// cell dispatches through the supervision and watch machinery. The
// unexported marker method seals the interface to the concrete types
// defined in this package.
type SystemMessage interface {
	// DefaultPriority is the recommended priority this signal should carry
	// when wrapped in a PriorityEnvelope via FromSystemMessage.
	DefaultPriority() int8

	// Name identifies the concrete signal for logging and telemetry.
	Name() string

	systemMessageMarker()
}

// Recommended default priorities for each system signal, expressed relative
// to the zero default used by ordinary user traffic.
const (
	PriorityDefault         int8 = 0
	PriorityReceiveTimeout  int8 = 8
	PriorityStop            int8 = 10
	PriorityEscalate        int8 = 13
	PriorityWatch           int8 = 5
	PriorityUnwatch         int8 = 5
	PriorityRestart         int8 = 10
	PriorityFailure         int8 = 12
	PrioritySuspendResume   int8 = 9
)

// WatchSignal requests that the sending actor be notified with a
// TerminatedSignal when the target actor stops.
type WatchSignal struct {
	WatcherID ActorId
}

func (WatchSignal) DefaultPriority() int8 { return PriorityWatch }
func (WatchSignal) Name() string          { return "Watch" }
func (WatchSignal) systemMessageMarker()  {}

// UnwatchSignal removes a previously registered watcher.
type UnwatchSignal struct {
	WatcherID ActorId
}

func (UnwatchSignal) DefaultPriority() int8 { return PriorityUnwatch }
func (UnwatchSignal) Name() string          { return "Unwatch" }
func (UnwatchSignal) systemMessageMarker()  {}

// StopSignal requests an orderly shutdown of the target cell.
type StopSignal struct{}

func (StopSignal) DefaultPriority() int8 { return PriorityStop }
func (StopSignal) Name() string          { return "Stop" }
func (StopSignal) systemMessageMarker()  {}

// FailureSignal carries a FailureInfo that the receiving cell runs through
// its failure handling, the same way as EscalateSignal. Nothing in this
// package sends it: a cell whose supervisor decides Escalate sends
// EscalateSignal to its parent.
type FailureSignal struct {
	Info FailureInfo
}

func (FailureSignal) DefaultPriority() int8 { return PriorityFailure }
func (FailureSignal) Name() string          { return "Failure" }
func (FailureSignal) systemMessageMarker()  {}

// RestartSignal requests that the target cell discard its user-level state
// and restart in place.
type RestartSignal struct{}

func (RestartSignal) DefaultPriority() int8 { return PriorityRestart }
func (RestartSignal) Name() string          { return "Restart" }
func (RestartSignal) systemMessageMarker()  {}

// SuspendSignal pauses dequeue of further envelopes until a matching
// ResumeSignal arrives. The mailbox keeps accepting sends.
type SuspendSignal struct{}

func (SuspendSignal) DefaultPriority() int8 { return PrioritySuspendResume }
func (SuspendSignal) Name() string          { return "Suspend" }
func (SuspendSignal) systemMessageMarker()  {}

// ResumeSignal clears a prior SuspendSignal.
type ResumeSignal struct{}

func (ResumeSignal) DefaultPriority() int8 { return PrioritySuspendResume }
func (ResumeSignal) Name() string          { return "Resume" }
func (ResumeSignal) systemMessageMarker()  {}

// EscalateSignal is the control-channel envelope pushed into a parent's
// mailbox when a child's supervisor decides to escalate a failure.
type EscalateSignal struct {
	Info FailureInfo
}

func (EscalateSignal) DefaultPriority() int8 { return PriorityEscalate }
func (EscalateSignal) Name() string          { return "Escalate" }
func (EscalateSignal) systemMessageMarker()  {}

// ReceiveTimeoutSignal is injected by the receive-timeout driver (C9) when
// an actor's mailbox has seen no user traffic within its armed window.
type ReceiveTimeoutSignal struct{}

func (ReceiveTimeoutSignal) DefaultPriority() int8 { return PriorityReceiveTimeout }
func (ReceiveTimeoutSignal) Name() string          { return "ReceiveTimeout" }
func (ReceiveTimeoutSignal) systemMessageMarker()  {}

// TerminatedSignal is delivered to a watcher once the watched actor has
// fully stopped.
type TerminatedSignal struct {
	ActorID ActorId
}

func (TerminatedSignal) DefaultPriority() int8 { return PriorityDefault }
func (TerminatedSignal) Name() string          { return "Terminated" }
func (TerminatedSignal) systemMessageMarker()  {}

// FromSystemMessage wraps sys in a control-channel PriorityEnvelope at its
// recommended default priority.
func FromSystemMessage[M any](sys SystemMessage, wrap func(SystemMessage) M) PriorityEnvelope[M] {
	return PriorityEnvelope[M]{
		Message:  wrap(sys),
		Priority: sys.DefaultPriority(),
		Channel:  ChannelControl,
	}
}

// MessageEnvelope is the tagged union dispatched to a cell: either a user
// payload (optionally carrying a metadata slot referencing a sender or
// responder dispatcher) or one of the closed SystemMessage signals.
type MessageEnvelope[U any] struct {
	user     UserMessage[U]
	sys      SystemMessage
	isSystem bool
}

// UserMessage carries a user payload plus an optional metadata-table key
// referencing a sender/responder dispatcher (see metadata.go).
type UserMessage[U any] struct {
	Payload    U
	MetadataID MetadataID
	HasMeta    bool
}

// UserEnvelope builds the User arm of a MessageEnvelope tagged union.
func UserEnvelope[U any](payload U) MessageEnvelope[U] {
	return MessageEnvelope[U]{user: UserMessage[U]{Payload: payload}}
}

// UserEnvelopeWithMetadata builds the User arm with an attached metadata
// slot (used by the ask pattern to carry a responder dispatcher).
func UserEnvelopeWithMetadata[U any](payload U, id MetadataID) MessageEnvelope[U] {
	return MessageEnvelope[U]{
		user: UserMessage[U]{Payload: payload, MetadataID: id, HasMeta: true},
	}
}

// SystemEnvelope builds the System arm of a MessageEnvelope tagged union.
func SystemEnvelope[U any](sys SystemMessage) MessageEnvelope[U] {
	return MessageEnvelope[U]{sys: sys, isSystem: true}
}

// IsSystem reports whether this envelope carries a SystemMessage rather
// than a user payload.
func (e MessageEnvelope[U]) IsSystem() bool {
	return e.isSystem
}

// System returns the wrapped SystemMessage and true, or the zero value and
// false if this is a User envelope.
func (e MessageEnvelope[U]) System() (SystemMessage, bool) {
	if !e.isSystem {
		return nil, false
	}

	return e.sys, true
}

// User returns the wrapped UserMessage and true, or the zero value and
// false if this is a System envelope.
func (e MessageEnvelope[U]) User() (UserMessage[U], bool) {
	if e.isSystem {
		return UserMessage[U]{}, false
	}

	return e.user, true
}
