package actor

import "sync"

// ResolveKind classifies what a Pid resolved to (spec §4.9).
type ResolveKind uint8

const (
	ResolveLocal ResolveKind = iota
	ResolveRemote
	ResolveUnknown
)

// Resolution is the outcome of resolving a Pid against a Registry.
type Resolution struct {
	Kind   ResolveKind
	Local  failureReceiver
	Remote Pid
}

// DeadLetterEnvelope is published to every DeadLetterHub listener when an
// envelope cannot be delivered.
type DeadLetterEnvelope struct {
	Target  Pid
	Payload any
	Reason  DeadLetterReason
	Detail  string
}

// DeadLetterListener receives every published DeadLetterEnvelope.
type DeadLetterListener func(DeadLetterEnvelope)

// DeadLetterHub fans a published envelope out to every subscribed listener
// (spec §12 supplement: "dead-letter listener fan-out, multiple
// subscribers").
type DeadLetterHub struct {
	mu        sync.RWMutex
	listeners []DeadLetterListener
}

// NewDeadLetterHub constructs an empty hub.
func NewDeadLetterHub() *DeadLetterHub {
	return &DeadLetterHub{}
}

// Subscribe registers l to receive every future published envelope.
func (h *DeadLetterHub) Subscribe(l DeadLetterListener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listeners = append(h.listeners, l)
}

// Publish fans env out to every subscriber.
func (h *DeadLetterHub) Publish(env DeadLetterEnvelope) {
	h.mu.RLock()
	listeners := append([]DeadLetterListener(nil), h.listeners...)
	h.mu.RUnlock()

	for _, l := range listeners {
		l(env)
	}
}

// Registry maps Pids to local actor handles within one ActorSystem, routing
// anything it cannot resolve to the dead-letter hub (spec §4.9).
type Registry struct {
	mu     sync.RWMutex
	system string
	local  map[string]failureReceiver
	byID   map[ActorId]failureReceiver

	deadLetters *DeadLetterHub
	sink        MetricsSink
}

// NewRegistry constructs a Registry for the named system, publishing
// unresolved/terminated/unreachable deliveries to hub.
func NewRegistry(system string, hub *DeadLetterHub) *Registry {
	if hub == nil {
		hub = NewDeadLetterHub()
	}

	return &Registry{
		system:      system,
		local:       make(map[string]failureReceiver),
		byID:        make(map[ActorId]failureReceiver),
		deadLetters: hub,
		sink:        NopMetricsSink{},
	}
}

// SetMetricsSink installs sink to receive ActorRegistered/ActorDeregistered
// events from subsequent RegisterLocal/Deregister calls.
func (r *Registry) SetMetricsSink(sink MetricsSink) {
	if sink == nil {
		sink = NopMetricsSink{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sink = sink
}

// DeadLetters exposes the hub so a caller can subscribe or publish
// directly.
func (r *Registry) DeadLetters() *DeadLetterHub {
	return r.deadLetters
}

// RegisterLocal associates pid with handle.
func (r *Registry) RegisterLocal(pid Pid, handle failureReceiver) {
	r.mu.Lock()
	r.local[pid.key()] = handle
	r.byID[handle.ID()] = handle
	sink := r.sink
	r.mu.Unlock()

	sink.ActorRegistered()
}

// Deregister removes pid's association, if any.
func (r *Registry) Deregister(pid Pid) {
	r.mu.Lock()
	handle, ok := r.local[pid.key()]
	delete(r.local, pid.key())
	if ok {
		delete(r.byID, handle.ID())
	}
	sink := r.sink
	r.mu.Unlock()

	if ok {
		sink.ActorDeregistered()
	}
}

// ResolveByID resolves an ActorId directly, bypassing Pid reconstruction.
// The control-lane WatchSignal handler uses this: it only carries the
// watcher's bare ActorId, not a full Pid.
func (r *Registry) ResolveByID(id ActorId) (failureReceiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.byID[id]

	return handle, ok
}

// Resolve classifies pid without touching the dead-letter hub.
func (r *Registry) Resolve(pid Pid) Resolution {
	if pid.IsRemote() {
		return Resolution{Kind: ResolveRemote, Remote: pid}
	}

	r.mu.RLock()
	handle, ok := r.local[pid.key()]
	r.mu.RUnlock()

	if !ok {
		return Resolution{Kind: ResolveUnknown}
	}

	return Resolution{Kind: ResolveLocal, Local: handle}
}

// ResolveOrDeadLetter resolves pid to a live local handle, or publishes an
// appropriately-reasoned DeadLetterEnvelope carrying payload and returns
// false.
func (r *Registry) ResolveOrDeadLetter(pid Pid, payload any) (failureReceiver, bool) {
	res := r.Resolve(pid)

	switch res.Kind {
	case ResolveLocal:
		if res.Local.IsStopped() {
			r.deadLetters.Publish(DeadLetterEnvelope{
				Target: pid, Payload: payload, Reason: DeadLetterTerminated,
			})

			return nil, false
		}

		return res.Local, true

	case ResolveRemote:
		r.deadLetters.Publish(DeadLetterEnvelope{
			Target: pid, Payload: payload, Reason: DeadLetterNetworkUnreachable,
			Detail: "no transport installed for remote delivery",
		})

		return nil, false

	default:
		r.deadLetters.Publish(DeadLetterEnvelope{
			Target: pid, Payload: payload, Reason: DeadLetterUnregisteredPid,
		})

		return nil, false
	}
}

// Watch resolves both pids to local handles and registers watcherPid's
// handle as a watcher of targetPid's, delivering a TerminatedSignal
// immediately if the target has already stopped. This is a direct registry
// mutation rather than a control-lane message: it only needs the two
// already-resolved handles and a lock already serializing the watcher map,
// so there is nothing for round-tripping through a mailbox to buy.
func (r *Registry) Watch(watcherPid, targetPid Pid) error {
	watcherRes := r.Resolve(watcherPid)
	targetRes := r.Resolve(targetPid)

	if watcherRes.Kind != ResolveLocal {
		return ErrDeadLetter
	}
	if targetRes.Kind != ResolveLocal {
		return ErrDeadLetter
	}

	target, ok := targetRes.Local.(watchable)
	if !ok {
		return ErrActorTerminated
	}

	target.AddWatcher(watcherRes.Local)

	return nil
}

// Unwatch reverses a prior Watch.
func (r *Registry) Unwatch(watcherPid, targetPid Pid) error {
	watcherRes := r.Resolve(watcherPid)
	targetRes := r.Resolve(targetPid)

	if watcherRes.Kind != ResolveLocal || targetRes.Kind != ResolveLocal {
		return ErrDeadLetter
	}

	target, ok := targetRes.Local.(watchable)
	if !ok {
		return ErrActorTerminated
	}

	target.RemoveWatcher(watcherRes.Local.ID())

	return nil
}
