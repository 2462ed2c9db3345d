package actor

import (
	"context"
	"sync"
	"time"

	btclogv2 "github.com/btcsuite/btclog/v2"

	"github.com/roasbeef/actorcore/internal/corelog"
)

// rootMessage is the payload type of the root guardian cell, which never
// receives user traffic — it exists purely as the top of the supervision
// tree and the terminal hop for Escalate directives with no further parent.
type rootMessage struct{}

type rootBehavior struct{}

func (rootBehavior) Receive(_ context.Context, _ rootMessage) Directive[rootMessage] {
	return Continue[rootMessage]()
}

// SystemConfig holds an ActorSystem's construction-time options (spec §6).
type SystemConfig struct {
	Name              string
	CoordinatorFlavor CoordinatorFlavor
	WorkerCount       int
	MetricsSink       MetricsSink
	Telemetry         FailureTelemetry
	TelemetryConfig   TelemetryObservationConfig
	DeadLetters       *DeadLetterHub
	LogHandlers       []btclogv2.Handler
}

// SystemOption configures a SystemConfig, following the teacher's
// functional-options builder convention.
type SystemOption func(*SystemConfig)

// WithName sets the system name embedded in every Pid this system issues.
func WithName(name string) SystemOption {
	return func(c *SystemConfig) { c.Name = name }
}

// WithCoordinatorFlavor selects the ready-queue coordinator implementation.
func WithCoordinatorFlavor(f CoordinatorFlavor) SystemOption {
	return func(c *SystemConfig) { c.CoordinatorFlavor = f }
}

// WithWorkerCount sets both the Adaptive-flavor selection input and the
// default RunForever worker count.
func WithWorkerCount(n int) SystemOption {
	return func(c *SystemConfig) { c.WorkerCount = n }
}

// WithMetricsSink installs sink on every mailbox this system spawns.
func WithMetricsSink(sink MetricsSink) SystemOption {
	return func(c *SystemConfig) { c.MetricsSink = sink }
}

// WithTelemetry installs a FailureTelemetry sink and its observation config
// (root_observation_config, spec §6/§12).
func WithTelemetry(t FailureTelemetry, cfg TelemetryObservationConfig) SystemOption {
	return func(c *SystemConfig) {
		c.Telemetry = t
		c.TelemetryConfig = cfg
	}
}

// WithDeadLetterHub installs a pre-existing hub instead of a fresh one, so a
// caller can subscribe before any actor spawns.
func WithDeadLetterHub(hub *DeadLetterHub) SystemOption {
	return func(c *SystemConfig) { c.DeadLetters = hub }
}

// WithLogHandlers fans every actorcore log record out to handlers (e.g. a
// console handler and a file handler) by combining them into a single
// corelog.HandlerSet and installing it process-wide, mirroring the
// teacher's daemon startup (cmd/substrated/main.go: NewHandlerSet +
// btclog.NewSLogger + UseLogger). A System built without this option logs
// nowhere, since corelog defaults to btclog.Disabled.
func WithLogHandlers(handlers ...btclogv2.Handler) SystemOption {
	return func(c *SystemConfig) { c.LogHandlers = handlers }
}

// extensionsRegistry is the RW-locked extension-point table supplementing
// spec §6 from original_source/api/extensions.rs: host applications attach
// arbitrary named singletons (a metrics registry, a connection pool) keyed
// by string, resolved later by any component holding the System.
type extensionsRegistry struct {
	mu    sync.RWMutex
	items map[string]any
}

func newExtensionsRegistry() *extensionsRegistry {
	return &extensionsRegistry{items: make(map[string]any)}
}

// Register installs value under key, overwriting any prior registration.
func (e *extensionsRegistry) Register(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items[key] = value
}

// Lookup returns the value registered under key, if any.
func (e *extensionsRegistry) Lookup(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.items[key]

	return v, ok
}

// System is the actor-runtime façade (spec §4.10/C11): it owns the
// scheduler, registry, metadata table, telemetry, and root guardian, and is
// the entry point for spawning and running actors.
type System struct {
	cfg SystemConfig

	ids idGenerator

	scheduler *Scheduler
	registry  *Registry
	meta      *metadataTable
	telemetry *telemetryObserver

	root failureReceiver

	extensions *extensionsRegistry
}

// NewSystem constructs a System applying opts over sensible defaults (a
// locked coordinator, a single worker, no metrics/telemetry), and spawns the
// root guardian.
func NewSystem(opts ...SystemOption) *System {
	cfg := SystemConfig{
		Name:              "local",
		CoordinatorFlavor: FlavorLocked,
		WorkerCount:       1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.LogHandlers) > 0 {
		combined := corelog.NewHandlerSet(cfg.LogHandlers...)
		corelog.UseLogger(btclogv2.NewSLogger(combined))
	}

	sys := &System{
		cfg:        cfg,
		scheduler:  NewScheduler(cfg.CoordinatorFlavor, cfg.WorkerCount),
		meta:       newMetadataTable(),
		extensions: newExtensionsRegistry(),
	}
	sys.registry = NewRegistry(cfg.Name, cfg.DeadLetters)
	if cfg.MetricsSink != nil {
		sys.registry.SetMetricsSink(cfg.MetricsSink)
	}
	sys.telemetry = newTelemetryObserver(cfg.Telemetry, cfg.TelemetryConfig)

	root := Spawn[rootMessage](sys, nil, false, SpawnConfig[rootMessage]{
		Behavior:   rootBehavior{},
		Supervisor: AlwaysRestart{},
	})
	sys.root = root.cell

	corelog.InfoS(context.Background(), "actor system started",
		"subsystem", "SYS", "name", cfg.Name, "root", root.pid)

	return sys
}

// Name returns the system name embedded in every Pid it issues.
func (sys *System) Name() string { return sys.cfg.Name }

// Registry exposes the Pid resolution/dead-letter registry.
func (sys *System) Registry() *Registry { return sys.registry }

// Scheduler exposes the ready-queue scheduler.
func (sys *System) Scheduler() *Scheduler { return sys.scheduler }

// DeadLetters exposes the dead-letter hub.
func (sys *System) DeadLetters() *DeadLetterHub { return sys.registry.DeadLetters() }

// Extensions exposes the named extension-point registry (spec §6
// supplement).
func (sys *System) Extensions() *extensionsRegistry { return sys.extensions }

// RootPid returns the root guardian's Pid.
func (sys *System) RootPid() Pid {
	return NewLocalPid(sys.cfg.Name, sys.root.Path())
}

func (sys *System) rootEscalationHandler() func(FailureInfo) {
	return func(info FailureInfo) {
		if sys.telemetry != nil {
			sys.telemetry.observe(info)
		}

		sys.scheduler.PushEscalation(info)

		corelog.DebugS(context.Background(), "escalation reached root guardian",
			"subsystem", "SYS", "actor_id", info.ActorID,
			"hops", info.Stage.Hops())
	}
}

// TakeEscalations drains every FailureInfo that reached the root guardian
// since the last call.
func (sys *System) TakeEscalations() []FailureInfo {
	return sys.scheduler.TakeEscalations()
}

// RunUntilIdle dispatches ready actors on the calling goroutine until the
// ready queue is empty, returning the number of dispatch steps performed.
// Intended for deterministic tests and single-threaded embeddings.
func (sys *System) RunUntilIdle(ctx context.Context) int {
	return sys.scheduler.DrainReady(ctx)
}

// RunUntil repeatedly drains the ready queue, sleeping pollInterval between
// drains, until cond returns true or ctx is cancelled.
func (sys *System) RunUntil(ctx context.Context, pollInterval time.Duration, cond func() bool) {
	for {
		sys.scheduler.DrainReady(ctx)

		if cond() || ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

// RunForever starts workerCount (or the configured WorkerCount, if <= 0)
// ready-queue workers and blocks until ctx is cancelled.
func (sys *System) RunForever(ctx context.Context, workerCount int) error {
	if workerCount <= 0 {
		workerCount = sys.cfg.WorkerCount
	}
	if workerCount <= 0 {
		workerCount = 1
	}

	return sys.scheduler.RunWorkers(ctx, workerCount)
}

// SpawnConfig bundles the per-actor options Spawn needs (spec §4.10).
type SpawnConfig[U any] struct {
	Behavior   Behavior[U]
	Reset      ResetFunc[U]
	Supervisor Supervisor

	ControlCapacity int
	UserCapacity    int
	OverflowPolicy  OverflowPolicy

	ThroughputHint int
}

// Ref is the externally held handle to a spawned actor: its Pid plus the
// narrow Tell/Ask/Stop surface. Defined as a free-standing generic type
// (rather than a Cell method) since Go methods cannot introduce new type
// parameters and Ask needs both U (the target's payload type) and R (the
// reply type).
type Ref[U any] struct {
	cell *Cell[U]
	pid  Pid
	sys  *System
}

// Pid returns the actor's address.
func (r Ref[U]) Pid() Pid { return r.pid }

// Tell enqueues payload on the actor's regular lane at default priority.
func (r Ref[U]) Tell(ctx context.Context, payload U) error {
	return r.cell.TellEnvelope(ctx, UserEnvelope(payload), PriorityDefault)
}

// TellPriority enqueues payload on the actor's regular lane at priority.
func (r Ref[U]) TellPriority(ctx context.Context, payload U, priority int8) error {
	return r.cell.TellEnvelope(ctx, UserEnvelope(payload), priority)
}

// Stop requests an orderly shutdown of the actor.
func (r Ref[U]) Stop(ctx context.Context) {
	r.cell.deliverSystem(ctx, StopSignal{})
}

// SetReceiveTimeout arms or cancels the actor's inactivity timer.
func (r Ref[U]) SetReceiveTimeout(d time.Duration) {
	r.cell.SetReceiveTimeout(d)
}

// Watch registers watcher to be notified via the registry's DeathWatch graph
// when r's actor stops.
func (r Ref[U]) Watch(watcher Pid) error {
	return r.sys.registry.Watch(watcher, r.pid)
}

// Unwatch reverses a prior Watch.
func (r Ref[U]) Unwatch(watcher Pid) error {
	return r.sys.registry.Unwatch(watcher, r.pid)
}

// AskRef sends buildRequest's result to target and returns a future
// resolving once target replies, the timeout elapses, the responder is
// dropped, or the send itself fails (spec §4.7).
func AskRef[U, R any](
	ctx context.Context, target Ref[U], buildRequest func(MetadataID) U,
	priority int8, timeout time.Duration,
) *AskFuture[R] {
	return Ask[U, R](ctx, target.cell, target.sys.meta, buildRequest, priority, timeout)
}

// Respond completes the AskFuture awaiting id on sys with reply, for use by
// a Behavior's Receive method (which only ever has a *System, never a bare
// metadataTable — that type is unexported so callers outside this package
// cannot name it). A no-op if id's slot already settled.
func Respond[R any](sys *System, id MetadataID, reply R) {
	RespondWith(sys.meta, id, reply)
}

// Spawn constructs and registers a new actor whose parent (for
// supervision/watch purposes) is parent. A nil parent gives an actor with no
// parent cell: its path holds only its own ActorId and no cell lists it as a
// child (the root guardian itself is spawned this way). parentIsRoot must be
// true exactly when parent is the root
// guardian, so an Escalate directive routes to the root escalation buffer
// instead of queuing a control-lane message nobody will ever drain.
func Spawn[U any](sys *System, parent failureReceiver, parentIsRoot bool, cfg SpawnConfig[U]) Ref[U] {
	id := sys.ids.allocate()

	var parentPath ActorPath
	if parent != nil {
		parentPath = parent.Path()
	}
	path := parentPath.Child(id)
	pid := NewLocalPid(sys.cfg.Name, path)

	var idxBox int

	cell := NewCell(CellConfig[U]{
		ID:              id,
		Path:            path,
		Parent:          parent,
		ParentIsRoot:    parentIsRoot,
		Behavior:        cfg.Behavior,
		Reset:           cfg.Reset,
		Supervisor:      cfg.Supervisor,
		MetadataTable:   sys.meta,
		ControlCapacity: cfg.ControlCapacity,
		UserCapacity:    cfg.UserCapacity,
		OverflowPolicy:  cfg.OverflowPolicy,
		ThroughputHint:  cfg.ThroughputHint,
		MetricsSink:     sys.cfg.MetricsSink,
		Telemetry:       sys.telemetry,
		PublishDeadLetter: func(payload any, reason DeadLetterReason) {
			sys.registry.DeadLetters().Publish(DeadLetterEnvelope{
				Target: pid, Payload: payload, Reason: reason,
			})
		},
		OnStopped: func(*Cell[U]) {
			sys.registry.Deregister(pid)
			sys.scheduler.RemoveActor(idxBox)
		},
		OnRootEscalation: sys.rootEscalationHandler(),
		ResolveWatcher:   sys.registry.ResolveByID,
	})

	idx := sys.scheduler.RegisterActor(cell)
	idxBox = idx
	cell.Mailbox().SetScheduleHook(func() { sys.scheduler.MarkReady(idx) })

	sys.registry.RegisterLocal(pid, cell)

	if parent != nil {
		if p, ok := parent.(interface{ AddChild(failureReceiver) }); ok {
			p.AddChild(cell)
		}
	}

	cell.Start(context.Background())

	return Ref[U]{cell: cell, pid: pid, sys: sys}
}

// SpawnTopLevel spawns an actor whose parent is the system's root guardian.
func SpawnTopLevel[U any](sys *System, cfg SpawnConfig[U]) Ref[U] {
	return Spawn[U](sys, sys.root, true, cfg)
}

// SpawnChild spawns an actor whose parent is an existing actor's Ref.
func SpawnChild[U, P any](sys *System, parent Ref[P], cfg SpawnConfig[U]) Ref[U] {
	return Spawn[U](sys, parent.cell, false, cfg)
}
