package actor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// dispatchable is the type-erased capability the Scheduler needs from a
// Cell[U] regardless of U: DispatchStep's signature never mentions U, so
// every *Cell[U] instantiation already satisfies this.
type dispatchable interface {
	DispatchStep(ctx context.Context) InvokeResult
}

// Scheduler owns the ready queue coordinator, the registry of spawned
// actors by index, and the root escalation buffer (spec §4.5/§4.9). It has
// no notion of the payload type any individual actor carries.
type Scheduler struct {
	coord ReadyCoordinator

	mu     sync.Mutex
	actors []dispatchable
	free   []int

	escalationMu sync.Mutex
	escalations  []FailureInfo

	workerCount int
}

// NewScheduler constructs a Scheduler using the given coordinator flavor.
// workerCount is only consulted by FlavorAdaptive; RunWorkers takes its own
// worker count.
func NewScheduler(flavor CoordinatorFlavor, workerCount int) *Scheduler {
	return &Scheduler{
		coord:       NewCoordinator(flavor, workerCount),
		workerCount: workerCount,
	}
}

// RegisterActor assigns d a stable index and returns it. Callers wire a
// mailbox's schedule hook to call MarkReady(idx) so subsequent sends
// re-enter the ready queue.
func (s *Scheduler) RegisterActor(d dispatchable) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		s.actors[idx] = d

		return idx
	}

	idx := len(s.actors)
	s.actors = append(s.actors, d)

	return idx
}

// RemoveActor releases idx for reuse and drops it from the coordinator.
// Safe to call even if idx still has an in-flight DispatchStep: the next
// DispatchNext for idx will simply observe a nil slot and Unregister again.
func (s *Scheduler) RemoveActor(idx int) {
	s.mu.Lock()
	s.actors[idx] = nil
	s.free = append(s.free, idx)
	s.mu.Unlock()

	s.coord.Unregister(idx)
}

// MarkReady notifies the coordinator that actorIdx has pending work.
func (s *Scheduler) MarkReady(idx int) {
	s.coord.RegisterReady(idx)
}

// DispatchNext runs one DispatchStep for the next ready actor, if any.
// Returns false if nothing was ready.
func (s *Scheduler) DispatchNext(ctx context.Context) bool {
	idx, ok := s.coord.DrainReadyCycle()
	if !ok {
		return false
	}

	s.mu.Lock()
	d := s.actors[idx]
	s.mu.Unlock()

	if d == nil {
		s.coord.Unregister(idx)

		return true
	}

	result := d.DispatchStep(ctx)
	s.coord.HandleInvokeResult(idx, result.ReadyHint)

	return true
}

// DrainReady runs DispatchNext until the ready queue is empty, returning
// the number of dispatch steps performed. Used for single-threaded
// run_until_idle-style tests and deterministic drains.
func (s *Scheduler) DrainReady(ctx context.Context) int {
	n := 0
	for s.DispatchNext(ctx) {
		n++

		if ctx.Err() != nil {
			break
		}
	}

	return n
}

// RunWorkers starts workerCount ready-queue workers and blocks until ctx is
// cancelled or one worker returns a non-context error, at which point every
// other worker is cancelled too (errgroup.WithContext).
func (s *Scheduler) RunWorkers(ctx context.Context, workerCount int) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			return s.readyQueueWorker(gctx)
		})
	}

	return g.Wait()
}

// readyQueueWorker repeatedly calls DispatchNext, suspending on the
// coordinator's wait signal (spec §4.5/§5: "Worker wait_for_ready()
// suspends on the coordinator signal") whenever the ready queue is empty,
// rather than polling it on a timer.
func (s *Scheduler) readyQueueWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.DispatchNext(ctx) {
			continue
		}

		if err := s.coord.WaitReady(ctx); err != nil {
			return err
		}
	}
}

// PushEscalation appends info to the root escalation buffer; a root
// guardian cell's OnRootEscalation hook should call this.
func (s *Scheduler) PushEscalation(info FailureInfo) {
	s.escalationMu.Lock()
	s.escalations = append(s.escalations, info)
	s.escalationMu.Unlock()
}

// TakeEscalations drains and returns every buffered escalation.
func (s *Scheduler) TakeEscalations() []FailureInfo {
	s.escalationMu.Lock()
	defer s.escalationMu.Unlock()

	out := s.escalations
	s.escalations = nil

	return out
}

// ReadyLen reports the coordinator's current queued count.
func (s *Scheduler) ReadyLen() int {
	return s.coord.Len()
}
