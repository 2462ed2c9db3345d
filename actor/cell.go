package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roasbeef/actorcore/internal/corelog"
)

// DefaultThroughputHint caps the number of envelopes a single dispatch step
// drains from one cell's mailbox, so a busy actor cannot monopolize a
// scheduler worker (spec §4.4/§5).
const DefaultThroughputHint = 300

// DirectiveKind is the closed set of outcomes a Behavior's Receive call can
// produce.
type DirectiveKind uint8

const (
	DirectiveContinue DirectiveKind = iota
	DirectiveBecome
	DirectiveStop
	DirectiveFail
)

// Directive is the result of handling one user message (spec §4.4).
type Directive[U any] struct {
	Kind    DirectiveKind
	Next    Behavior[U]
	Payload any
}

// Continue keeps the current behavior and takes no further action.
func Continue[U any]() Directive[U] {
	return Directive[U]{Kind: DirectiveContinue}
}

// Become swaps in next as the behavior for subsequent messages.
func Become[U any](next Behavior[U]) Directive[U] {
	return Directive[U]{Kind: DirectiveBecome, Next: next}
}

// Stop requests that the cell enter its shutdown path after this message.
func Stop[U any]() Directive[U] {
	return Directive[U]{Kind: DirectiveStop}
}

// Fail reports a handler failure carrying payload, to be decided by the
// cell's supervisor.
func Fail[U any](payload any) Directive[U] {
	return Directive[U]{Kind: DirectiveFail, Payload: payload}
}

// Behavior is the user-supplied message handler.
type Behavior[U any] interface {
	Receive(ctx context.Context, msg U) Directive[U]
}

// BehaviorFunc adapts a plain function to Behavior.
type BehaviorFunc[U any] func(ctx context.Context, msg U) Directive[U]

// Receive implements Behavior.
func (f BehaviorFunc[U]) Receive(ctx context.Context, msg U) Directive[U] {
	return f(ctx, msg)
}

// ResetFunc produces a fresh Behavior on Restart, discarding whatever
// closed-over state the prior one accumulated.
type ResetFunc[U any] func() Behavior[U]

// Startable is an optional Behavior extension invoked once, before the first
// envelope is dispatched.
type Startable interface {
	PreStart(ctx context.Context)
}

// Restartable is an optional Behavior extension bracketing a Restart
// directive's handler swap.
type Restartable interface {
	PreRestart(ctx context.Context)
	PostRestart(ctx context.Context)
}

// StoppableBehavior is an optional Behavior extension invoked once the cell
// has fully entered its stop path.
type StoppableBehavior interface {
	PostStop(ctx context.Context)
}

// ReceiveTimeoutAware is an optional Behavior extension invoked when the
// receive-timeout driver fires (spec §4.8). A Behavior that doesn't
// implement it simply ignores every ReceiveTimeoutSignal.
type ReceiveTimeoutAware[U any] interface {
	ReceiveTimeout(ctx context.Context) Directive[U]
}

// failureReceiver is the message-type-erased capability the scheduler,
// registry, and other cells need from an actor regardless of its own
// concrete payload type U: system signals (SystemMessage) are never
// parametrized by U, so any cell can receive one irrespective of what its
// own mailbox carries. This is what lets a parent hold children, and a
// watched actor hold watchers, across different U's in the same tree.
type failureReceiver interface {
	ID() ActorId
	Path() ActorPath
	IsStopped() bool
	deliverSystem(ctx context.Context, sys SystemMessage) bool
}

// watchable extends failureReceiver with the DeathWatch mutation registry.go
// needs to wire a Watch/Unwatch request between two resolved handles.
type watchable interface {
	failureReceiver
	AddWatcher(w failureReceiver)
	RemoveWatcher(id ActorId)
}

// DeadLetterPublisher is the narrow hook a cell uses to report an envelope
// it could not deliver to user code, without depending on registry.go's
// concrete hub type.
type DeadLetterPublisher func(payload any, reason DeadLetterReason)

// CellConfig bundles everything needed to construct a Cell.
type CellConfig[U any] struct {
	ID     ActorId
	Path   ActorPath
	Parent failureReceiver

	// ParentIsRoot marks that Parent is the root guardian: an Escalate
	// directive here routes straight to OnRootEscalation rather than
	// queuing a control-lane EscalateSignal on Parent.
	ParentIsRoot bool

	Behavior   Behavior[U]
	Reset      ResetFunc[U]
	Supervisor Supervisor

	MetadataTable *metadataTable

	ControlCapacity int
	UserCapacity    int
	OverflowPolicy  OverflowPolicy

	ThroughputHint int

	MetricsSink MetricsSink
	Telemetry   *telemetryObserver

	PublishDeadLetter DeadLetterPublisher

	// OnStopped is invoked exactly once, after the stop path has fully run
	// (watchers notified, children signalled, mailbox drained). The
	// registry uses this to deregister the actor's Pid.
	OnStopped func(c *Cell[U])

	// OnRootEscalation receives a FailureInfo that reached the root
	// guardian's escalation path; the scheduler installs this to feed its
	// take_escalations() buffer.
	OnRootEscalation func(FailureInfo)

	// ResolveWatcher resolves a bare ActorId to its failureReceiver, for
	// servicing a WatchSignal delivered on the control lane (spec §4.4
	// step 5). The registry supplies this; tests may leave it nil if they
	// never deliver a WatchSignal.
	ResolveWatcher func(ActorId) (failureReceiver, bool)
}

// Cell is the per-actor execution unit (spec §4.4): a mailbox, a handler
// behavior, supervision bookkeeping, and the dispatch step the scheduler
// drives to at-most-one-concurrent-invocation-per-actor.
type Cell[U any] struct {
	id     ActorId
	path   ActorPath
	parent failureReceiver

	parentIsRoot bool

	mailbox *Mailbox[U]
	meta    *metadataTable

	supervisor Supervisor
	telemetry  *telemetryObserver

	behaviorMu sync.RWMutex
	behavior   Behavior[U]
	reset      ResetFunc[U]

	throughputHint int

	suspendedMu sync.Mutex
	suspended   bool

	stopped    atomic.Bool
	inProgress atomic.Bool

	watchMu  sync.Mutex
	watchers map[ActorId]failureReceiver

	childMu  sync.Mutex
	children []failureReceiver

	rtDriver *ReceiveTimeoutDriver

	publishDeadLetter DeadLetterPublisher
	onStopped         func(c *Cell[U])
	onRootEscalation  func(FailureInfo)
	resolveWatcher    func(ActorId) (failureReceiver, bool)
}

// NewCell constructs a Cell from cfg. The returned cell has not yet had
// Start called and is not registered with any coordinator.
func NewCell[U any](cfg CellConfig[U]) *Cell[U] {
	if cfg.Supervisor == nil {
		cfg.Supervisor = AlwaysRestart{}
	}
	if cfg.ThroughputHint <= 0 {
		cfg.ThroughputHint = DefaultThroughputHint
	}

	mb := NewMailbox[U](cfg.ControlCapacity, cfg.UserCapacity, cfg.OverflowPolicy)
	if cfg.MetricsSink != nil {
		mb.SetMetricsSink(cfg.MetricsSink)
	}

	return &Cell[U]{
		id:                cfg.ID,
		path:              cfg.Path,
		parent:            cfg.Parent,
		parentIsRoot:      cfg.ParentIsRoot,
		mailbox:           mb,
		meta:              cfg.MetadataTable,
		supervisor:        cfg.Supervisor,
		telemetry:         cfg.Telemetry,
		behavior:          cfg.Behavior,
		reset:             cfg.Reset,
		throughputHint:    cfg.ThroughputHint,
		watchers:          make(map[ActorId]failureReceiver),
		publishDeadLetter: cfg.PublishDeadLetter,
		onStopped:         cfg.OnStopped,
		onRootEscalation:  cfg.OnRootEscalation,
		resolveWatcher:    cfg.ResolveWatcher,
	}
}

// ID implements failureReceiver.
func (c *Cell[U]) ID() ActorId { return c.id }

// Path implements failureReceiver.
func (c *Cell[U]) Path() ActorPath { return c.path }

// IsStopped implements failureReceiver.
func (c *Cell[U]) IsStopped() bool { return c.stopped.Load() }

// Mailbox exposes the underlying mailbox for the scheduler/registry.
func (c *Cell[U]) Mailbox() *Mailbox[U] { return c.mailbox }

// InstallReceiveTimeoutDriver wires a C9 receive-timeout driver whose
// firings inject a ReceiveTimeoutSignal onto this cell's own control lane.
func (c *Cell[U]) InstallReceiveTimeoutDriver() {
	c.rtDriver = NewReceiveTimeoutDriver(func() {
		c.deliverSystem(context.Background(), ReceiveTimeoutSignal{})
	})
}

// SetReceiveTimeout arms (or re-arms) the receive-timeout window. A zero or
// negative duration cancels any armed window.
func (c *Cell[U]) SetReceiveTimeout(d time.Duration) {
	if c.rtDriver == nil {
		c.InstallReceiveTimeoutDriver()
	}
	if d <= 0 {
		c.rtDriver.Cancel()
		return
	}
	c.rtDriver.Set(d)
}

// AddChild registers child as a stop/restart-propagation target of c.
func (c *Cell[U]) AddChild(child failureReceiver) {
	c.childMu.Lock()
	c.children = append(c.children, child)
	c.childMu.Unlock()
}

// AddWatcher registers watcher to receive a TerminatedSignal once c stops.
// If c has already stopped, the signal is delivered immediately instead.
func (c *Cell[U]) AddWatcher(watcher failureReceiver) {
	if c.IsStopped() {
		watcher.deliverSystem(context.Background(), TerminatedSignal{ActorID: c.id})
		return
	}

	c.watchMu.Lock()
	c.watchers[watcher.ID()] = watcher
	c.watchMu.Unlock()
}

// RemoveWatcher drops a previously registered watcher.
func (c *Cell[U]) RemoveWatcher(id ActorId) {
	c.watchMu.Lock()
	delete(c.watchers, id)
	c.watchMu.Unlock()
}

// TellEnvelope implements AskTarget, and is the general-purpose entry point
// callers outside the package (via a Ref wrapper) use to enqueue a message.
func (c *Cell[U]) TellEnvelope(ctx context.Context, msg MessageEnvelope[U], priority int8) error {
	return c.mailbox.TrySend(NewPriorityEnvelope(msg, priority))
}

// deliverSystem implements failureReceiver: it wraps sys at its recommended
// priority and pushes it onto this cell's control lane.
func (c *Cell[U]) deliverSystem(ctx context.Context, sys SystemMessage) bool {
	env := FromSystemMessage[MessageEnvelope[U]](sys, func(s SystemMessage) MessageEnvelope[U] {
		return SystemEnvelope[U](s)
	})

	return c.mailbox.TrySend(env) == nil
}

// Start runs the PreStart hook, if the behavior implements Startable. Called
// once by the scheduler immediately after spawn, before the cell is first
// registered as ready.
func (c *Cell[U]) Start(ctx context.Context) {
	if s, ok := c.currentBehavior().(Startable); ok {
		s.PreStart(ctx)
	}
}

func (c *Cell[U]) currentBehavior() Behavior[U] {
	c.behaviorMu.RLock()
	defer c.behaviorMu.RUnlock()

	return c.behavior
}

func (c *Cell[U]) isSuspended() bool {
	c.suspendedMu.Lock()
	defer c.suspendedMu.Unlock()

	return c.suspended
}

func (c *Cell[U]) setSuspended(v bool) {
	c.suspendedMu.Lock()
	c.suspended = v
	c.suspendedMu.Unlock()
}

// InvokeResult is what DispatchStep hands back to the coordinator: whether
// this cell still has work a future dispatch step should process.
type InvokeResult struct {
	ReadyHint bool
}

// DispatchStep drains up to throughputHint envelopes from the mailbox,
// control lane first, honoring suspension. It enforces the
// at-most-one-concurrent-dispatch-per-actor invariant itself via inProgress:
// a concurrent caller (the coordinator mistakenly re-registering the same
// ready actor) gets back a no-op ReadyHint=true instead of racing the
// handler.
func (c *Cell[U]) DispatchStep(ctx context.Context) InvokeResult {
	if c.stopped.Load() {
		return InvokeResult{}
	}

	if !c.inProgress.CompareAndSwap(false, true) {
		return InvokeResult{ReadyHint: true}
	}
	defer c.inProgress.Store(false)

	dispatched := 0
	for dispatched < c.throughputHint {
		if c.stopped.Load() {
			break
		}

		allowUser := !c.isSuspended()

		var (
			env PriorityEnvelope[MessageEnvelope[U]]
			ok  bool
			err error
		)
		if allowUser {
			env, ok, err = c.mailbox.TryDequeue()
		} else {
			env, ok, err = c.mailbox.TryDequeueControlOnly()
		}

		if err != nil {
			c.enterStopPath(ctx)
			break
		}
		if !ok {
			break
		}

		c.handleEnvelope(ctx, env)
		dispatched++
	}

	if c.stopped.Load() {
		return InvokeResult{}
	}

	if c.isSuspended() {
		return InvokeResult{ReadyHint: c.mailbox.HasReadyControl()}
	}

	return InvokeResult{ReadyHint: !c.mailbox.IsEmpty()}
}

func (c *Cell[U]) handleEnvelope(ctx context.Context, env PriorityEnvelope[MessageEnvelope[U]]) {
	if sys, isSystem := env.Message.System(); isSystem {
		c.handleSystem(ctx, sys)
		return
	}

	user, _ := env.Message.User()
	c.handleUser(ctx, user)
}

func (c *Cell[U]) handleSystem(ctx context.Context, sys SystemMessage) {
	switch s := sys.(type) {
	case StopSignal:
		c.enterStopPath(ctx)

	case RestartSignal:
		c.performRestart(ctx)

	case SuspendSignal:
		c.setSuspended(true)

	case ResumeSignal:
		c.setSuspended(false)

	case ReceiveTimeoutSignal:
		c.handleReceiveTimeout(ctx)

	case WatchSignal:
		if c.resolveWatcher == nil {
			corelog.WarnS(ctx, "watch signal dropped, no resolver installed",
				nil, "subsystem", "CELL", "actor_id", c.id,
				"watcher_id", s.WatcherID)
			return
		}

		watcher, ok := c.resolveWatcher(s.WatcherID)
		if !ok {
			corelog.WarnS(ctx, "watch signal dropped, watcher unresolvable",
				nil, "subsystem", "CELL", "actor_id", c.id,
				"watcher_id", s.WatcherID)
			return
		}

		c.AddWatcher(watcher)

	case UnwatchSignal:
		c.RemoveWatcher(s.WatcherID)

	case FailureSignal:
		c.handleFailure(ctx, s.Info)

	case EscalateSignal:
		c.handleFailure(ctx, s.Info)

	case TerminatedSignal:
		corelog.TraceS(ctx, "observed actor termination",
			"subsystem", "CELL", "actor_id", c.id, "terminated_id", s.ActorID)

	default:
		corelog.WarnS(ctx, "unhandled system message", nil,
			"subsystem", "CELL", "actor_id", c.id, "message", sys.Name())
	}
}

func (c *Cell[U]) handleUser(ctx context.Context, msg UserMessage[U]) {
	behavior := c.currentBehavior()

	directive := c.safeReceiveUser(ctx, behavior, msg.Payload)

	if c.rtDriver != nil {
		c.rtDriver.NotifyActivity()
	}

	c.applyUserDirective(ctx, directive)
}

func (c *Cell[U]) safeReceiveUser(ctx context.Context, behavior Behavior[U], payload U) (directive Directive[U]) {
	defer func() {
		if r := recover(); r != nil {
			directive = Fail[U](r)
		}
	}()

	return behavior.Receive(ctx, payload)
}

// handleReceiveTimeout delivers a firing to the behavior if it opts in via
// ReceiveTimeoutAware; otherwise the signal is silently discarded.
func (c *Cell[U]) handleReceiveTimeout(ctx context.Context) {
	behavior := c.currentBehavior()

	aware, ok := behavior.(ReceiveTimeoutAware[U])
	if !ok {
		return
	}

	directive := c.safeReceiveTimeout(ctx, aware)
	c.applyUserDirective(ctx, directive)
}

func (c *Cell[U]) safeReceiveTimeout(ctx context.Context, aware ReceiveTimeoutAware[U]) (directive Directive[U]) {
	defer func() {
		if r := recover(); r != nil {
			directive = Fail[U](r)
		}
	}()

	return aware.ReceiveTimeout(ctx)
}

func (c *Cell[U]) applyUserDirective(ctx context.Context, directive Directive[U]) {
	switch directive.Kind {
	case DirectiveContinue:

	case DirectiveBecome:
		c.behaviorMu.Lock()
		c.behavior = directive.Next
		c.behaviorMu.Unlock()

	case DirectiveStop:
		c.enterStopPath(ctx)

	case DirectiveFail:
		info := NewFailureInfo(c.id, c.path, directive.Payload,
			fmt.Sprintf("%v", directive.Payload))
		c.handleFailure(ctx, info)
	}
}

// handleFailure runs the C7 supervision decision (spec §4.6) for a
// FailureInfo reported either by this cell's own handler or forwarded up
// from a child via FailureSignal/EscalateSignal. Either way the directive
// targets this cell: Resume swallows it, Restart/Stop act on this cell (and
// its children, on Restart), and Escalate forwards the bumped-hop snapshot
// toward the root guardian.
func (c *Cell[U]) handleFailure(ctx context.Context, info FailureInfo) {
	directive := c.supervisor.Decide(info)

	if c.telemetry != nil {
		c.telemetry.observe(info)
	}

	switch directive {
	case DirectiveResume:

	case DirectiveRestart:
		c.performRestart(ctx)
		c.restartChildren(ctx)

	case DirectiveStopChild:
		c.enterStopPath(ctx)

	case DirectiveEscalate:
		c.escalate(ctx, info.EscalateToParent())
	}
}

func (c *Cell[U]) escalate(ctx context.Context, info FailureInfo) {
	if c.parent == nil || c.parentIsRoot {
		if c.onRootEscalation != nil {
			c.onRootEscalation(info)
		}
		return
	}

	c.parent.deliverSystem(ctx, EscalateSignal{Info: info})
}

func (c *Cell[U]) performRestart(ctx context.Context) {
	c.behaviorMu.Lock()
	defer c.behaviorMu.Unlock()

	if r, ok := c.behavior.(Restartable); ok {
		r.PreRestart(ctx)
	}
	if c.reset != nil {
		c.behavior = c.reset()
	}
	if r, ok := c.behavior.(Restartable); ok {
		r.PostRestart(ctx)
	}

	corelog.DebugS(ctx, "actor restarted", "subsystem", "CELL", "actor_id", c.id)
}

func (c *Cell[U]) restartChildren(ctx context.Context) {
	c.childMu.Lock()
	children := append([]failureReceiver(nil), c.children...)
	c.childMu.Unlock()

	for _, child := range children {
		child.deliverSystem(ctx, RestartSignal{})
	}
}

// enterStopPath runs the cell's shutdown sequence exactly once: PostStop
// hook, mailbox close, receive-timeout cancellation, watcher notification,
// child stop propagation, dead-letter draining of anything left queued, and
// finally the registry's OnStopped hook.
func (c *Cell[U]) enterStopPath(ctx context.Context) {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}

	if b, ok := c.currentBehavior().(StoppableBehavior); ok {
		b.PostStop(ctx)
	}

	c.mailbox.Close()

	if c.rtDriver != nil {
		c.rtDriver.Cancel()
	}

	c.watchMu.Lock()
	watchers := make([]failureReceiver, 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.watchers = nil
	c.watchMu.Unlock()

	for _, w := range watchers {
		w.deliverSystem(ctx, TerminatedSignal{ActorID: c.id})
	}

	c.childMu.Lock()
	children := append([]failureReceiver(nil), c.children...)
	c.childMu.Unlock()

	for _, child := range children {
		child.deliverSystem(ctx, StopSignal{})
	}

	c.drainToDeadLetters(ctx)

	corelog.DebugS(ctx, "actor stopped", "subsystem", "CELL", "actor_id", c.id)

	if c.onStopped != nil {
		c.onStopped(c)
	}
}

// drainToDeadLetters empties whatever remains queued after Close, releasing
// any attached ask metadata slot (notifying the asker the responder was
// dropped) and forwarding the payload to the configured dead-letter sink.
func (c *Cell[U]) drainToDeadLetters(ctx context.Context) {
	for {
		env, ok, err := c.mailbox.TryDequeue()
		if err != nil || !ok {
			return
		}

		if _, isSystem := env.Message.System(); isSystem {
			continue
		}

		user, _ := env.Message.User()
		if user.HasMeta && c.meta != nil {
			c.meta.Drop(user.MetadataID)
		}

		if c.publishDeadLetter != nil {
			c.publishDeadLetter(user.Payload, DeadLetterTerminated)
		}
	}
}

var _ failureReceiver = (*Cell[int])(nil)
var _ watchable = (*Cell[int])(nil)
var _ AskTarget[int] = (*Cell[int])(nil)
