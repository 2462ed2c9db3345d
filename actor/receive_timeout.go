package actor

import (
	"sync"
	"time"
)

// ReceiveTimeoutDriver arms a per-actor inactivity timer that invokes
// inject() when no user message has arrived within the armed window. The
// cell supplies inject to enqueue a ReceiveTimeoutSignal onto its own
// control lane (spec §4.8).
//
// The driver is generation-counted rather than using a cancellable timer
// directly: Set/Cancel/NotifyActivity all bump the generation, and a firing
// timer checks its captured generation against the current one before
// calling inject, so a stale firing (one that raced a later re-arm or a
// NotifyActivity) is silently dropped instead of delivering a spurious
// timeout.
type ReceiveTimeoutDriver struct {
	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	inject     func()
}

// NewReceiveTimeoutDriver constructs a driver that calls inject whenever an
// armed window elapses without a subsequent NotifyActivity/Set/Cancel.
func NewReceiveTimeoutDriver(inject func()) *ReceiveTimeoutDriver {
	return &ReceiveTimeoutDriver{inject: inject}
}

// Set arms the timer for d, starting now. If already armed, the generation
// increments so the prior deadline's firing is treated as stale.
func (r *ReceiveTimeoutDriver) Set(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	gen := r.generation

	if r.timer != nil {
		r.timer.Stop()
	}

	r.timer = time.AfterFunc(d, func() { r.fire(gen) })
}

func (r *ReceiveTimeoutDriver) fire(gen uint64) {
	r.mu.Lock()
	current := r.generation
	r.mu.Unlock()

	if gen != current {
		return
	}

	r.inject()
}

// NotifyActivity is called by the cell after each user message (never a
// system message) and before yielding; it bumps the generation so any
// in-flight timer becomes stale. Per spec §4.8 this is at-most-once per
// arming: a fresh window is only armed by the next explicit Set.
func (r *ReceiveTimeoutDriver) NotifyActivity() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
}

// Cancel clears any armed duration and bumps the generation.
func (r *ReceiveTimeoutDriver) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
