package actorutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roasbeef/actorcore/actor"
)

// newPoolID mints a diagnostic identifier for a pool left unnamed by its
// caller, following the teacher's NewV7-with-fallback idiom (time-ordered
// IDs when the runtime supports them, a random v4 otherwise).
func newPoolID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return "pool-" + id.String()
}

// PoolConfig configures a round-robin worker Pool (DESIGN.md: grounded on
// the teacher's internal/actorutil.PoolConfig). NewActor is called once per
// slot, index 0..Size-1, and must return the SpawnConfig for that worker;
// every worker is spawned top-level under the system's root guardian, so a
// pool has no single parent to restart or escalate through as a unit — each
// worker supervises itself per its own SpawnConfig.Supervisor.
type PoolConfig[U any] struct {
	ID       string
	Size     int
	NewActor func(idx int) actor.SpawnConfig[U]
}

// Pool is a fixed-size set of identically-shaped actors addressed through a
// single round-robin handle, ported from the teacher's
// internal/actorutil.Pool onto this module's Ref/Spawn primitives.
type Pool[U any] struct {
	id   string
	refs []actor.Ref[U]
	next atomic.Uint64
}

// NewPool spawns cfg.Size workers under sys and returns the Pool handle.
func NewPool[U any](sys *actor.System, cfg PoolConfig[U]) *Pool[U] {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}

	id := cfg.ID
	if id == "" {
		id = newPoolID()
	}

	refs := make([]actor.Ref[U], size)
	for i := 0; i < size; i++ {
		refs[i] = actor.SpawnTopLevel[U](sys, cfg.NewActor(i))
	}

	return &Pool[U]{id: id, refs: refs}
}

// ID returns the pool's identifier: cfg.ID, or the generated "pool-<uuid>"
// when cfg.ID was empty.
func (p *Pool[U]) ID() string { return p.id }

// Size returns the number of workers in the pool.
func (p *Pool[U]) Size() int { return len(p.refs) }

// Refs returns a copy of the pool's worker handles.
func (p *Pool[U]) Refs() []actor.Ref[U] {
	out := make([]actor.Ref[U], len(p.refs))
	copy(out, p.refs)

	return out
}

func (p *Pool[U]) pick() actor.Ref[U] {
	idx := p.next.Add(1) % uint64(len(p.refs))

	return p.refs[idx]
}

// Tell enqueues payload on the next worker in round-robin order.
func (p *Pool[U]) Tell(ctx context.Context, payload U) error {
	return p.pick().Tell(ctx, payload)
}

// Broadcast enqueues payload on every worker.
func (p *Pool[U]) Broadcast(ctx context.Context, payload U) {
	TellAll(ctx, p.refs, payload)
}

// Ask sends buildRequest's result to the next worker in round-robin order.
func (p *Pool[U]) Ask(ctx context.Context, buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration) (any, error) {
	return AskAwait[U, any](ctx, p.pick(), buildRequest, priority, timeout)
}

// BroadcastAsk sends buildRequest's result to every worker and waits for
// all replies.
func BroadcastAsk[U, R any](
	ctx context.Context, p *Pool[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) []R {

	results := ParallelAskSame[U, R](ctx, p.refs, buildRequest, priority, timeout)

	return CollectSuccesses(results)
}

// PoolAsk asks the next worker in round-robin order with reply type R,
// returned as an AskFuture rather than blocked-and-unpacked (use this when
// the caller needs State()/ThenApply rather than a plain value/error pair).
func PoolAsk[U, R any](
	ctx context.Context, p *Pool[U],
	buildRequest func(actor.MetadataID) U, priority int8, timeout time.Duration,
) *actor.AskFuture[R] {

	return actor.AskRef[U, R](ctx, p.pick(), buildRequest, priority, timeout)
}

// Stop requests an orderly shutdown of every worker in the pool.
func (p *Pool[U]) Stop(ctx context.Context) {
	for _, ref := range p.refs {
		ref.Stop(ctx)
	}
}
