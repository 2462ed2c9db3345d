package actor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roasbeef/actorcore/internal/corelog"
)

// scheduleHook is invoked after a successful trySend so the mailbox can
// notify the coordinator without importing the scheduler package. It takes
// no arguments: the installed closure captures the actor's ready-queue index.
type scheduleHook func()

// Mailbox is the dual-lane envelope queue for a single actor: a control
// lane (system signals and control-channel user traffic) that is always
// drained before the user lane, and a user lane for ordinary traffic. Both
// lanes order by descending priority with FIFO tie-breaking (see
// queueBackend.pollBy).
type Mailbox[U any] struct {
	control *queueBackend[PriorityEnvelope[MessageEnvelope[U]]]
	user    *queueBackend[PriorityEnvelope[MessageEnvelope[U]]]

	notify chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once

	hookMu sync.RWMutex
	hook   scheduleHook
}

// NewMailbox builds a Mailbox with the given control-lane capacity (0 means
// unbounded; the control lane always uses OverflowBlock, so a full control
// lane rejects with ErrQueueFull and never drops signals) and user-lane
// capacity/overflow policy.
func NewMailbox[U any](controlCapacity, userCapacity int, userPolicy OverflowPolicy) *Mailbox[U] {
	return &Mailbox[U]{
		control: newQueueBackend[PriorityEnvelope[MessageEnvelope[U]]](controlCapacity, OverflowBlock),
		user:    newQueueBackend[PriorityEnvelope[MessageEnvelope[U]]](userCapacity, userPolicy),
		notify:  make(chan struct{}, 1),
	}
}

// SetMetricsSink installs sink on both lanes.
func (m *Mailbox[U]) SetMetricsSink(sink MetricsSink) {
	m.control.setMetricsSink(sink)
	m.user.setMetricsSink(sink)
}

// SetScheduleHook installs the callback invoked after every envelope that is
// successfully enqueued. The scheduler uses this to re-register the owning
// actor's ready-queue index (register_ready) without the mailbox knowing
// anything about the coordinator.
func (m *Mailbox[U]) SetScheduleHook(hook scheduleHook) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()

	m.hook = hook
}

func (m *Mailbox[U]) fireHook() {
	m.hookMu.RLock()
	hook := m.hook
	m.hookMu.RUnlock()

	if hook != nil {
		hook()
	}
}

// wake pings any goroutine blocked in recv without blocking itself.
func (m *Mailbox[U]) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// TrySend enqueues env into the lane selected by env.Channel. It never
// blocks: a full control lane (Block policy) or a full user lane under
// Block returns ErrQueueFull; any lane returns ErrQueueClosed once the
// mailbox is closed.
func (m *Mailbox[U]) TrySend(env PriorityEnvelope[MessageEnvelope[U]]) error {
	if m.closed.Load() {
		return ErrQueueClosed
	}

	var (
		outcome OfferOutcome
		err     error
	)

	switch env.Channel {
	case ChannelControl:
		outcome, err = m.control.offer(env)
	default:
		outcome, err = m.user.offer(env)
	}

	if err != nil {
		return err
	}

	_ = outcome

	m.wake()
	m.fireHook()

	return nil
}

func higherPriorityFirst[U any](
	cand, best PriorityEnvelope[MessageEnvelope[U]],
) bool {
	return cand.Priority > best.Priority
}

// tryDequeue attempts one non-blocking pop, control lane first. When
// allowUser is false the user lane is never consulted — used by a
// suspended cell, which must still observe Resume/Stop/Watch arriving on
// the control lane. It returns (env, true, nil) on success, (zero, false,
// nil) when nothing is currently available, or (zero, false,
// ErrQueueDisconnected) once the mailbox is closed and (every lane it is
// allowed to look at) has been fully drained.
func (m *Mailbox[U]) tryDequeue(allowUser bool) (PriorityEnvelope[MessageEnvelope[U]], bool, error) {
	ctrlOut := m.control.pollBy(higherPriorityFirst[U])
	switch ctrlOut.Kind {
	case PollMessage, PollClosed:
		return ctrlOut.Item, true, nil
	}

	var zero PriorityEnvelope[MessageEnvelope[U]]

	if !allowUser {
		if ctrlOut.Kind == PollDisconnected {
			return zero, false, ErrQueueDisconnected
		}

		return zero, false, nil
	}

	userOut := m.user.pollBy(higherPriorityFirst[U])
	switch userOut.Kind {
	case PollMessage, PollClosed:
		return userOut.Item, true, nil
	}

	if ctrlOut.Kind == PollDisconnected && userOut.Kind == PollDisconnected {
		return zero, false, ErrQueueDisconnected
	}

	return zero, false, nil
}

// TryDequeue attempts one non-blocking pop across both lanes, control
// first.
func (m *Mailbox[U]) TryDequeue() (PriorityEnvelope[MessageEnvelope[U]], bool, error) {
	return m.tryDequeue(true)
}

// TryDequeueControlOnly attempts one non-blocking pop from the control lane
// only, used while the owning cell is suspended.
func (m *Mailbox[U]) TryDequeueControlOnly() (PriorityEnvelope[MessageEnvelope[U]], bool, error) {
	return m.tryDequeue(false)
}

// HasReadyControl reports whether the control lane currently has at least
// one envelope, without dequeuing it.
func (m *Mailbox[U]) HasReadyControl() bool {
	return m.control.len() > 0
}

// Recv resolves to the next envelope honoring the control-before-user,
// priority-before-FIFO ordering contract. It suspends on the mailbox's
// signal when both lanes are empty, and is cancellation-safe: an envelope
// is only ever removed from its lane in the same call that returns it, so a
// cancelled/abandoned Recv never loses a message.
func (m *Mailbox[U]) Recv(ctx context.Context) (PriorityEnvelope[MessageEnvelope[U]], error) {
	for {
		env, ok, err := m.tryDequeue(true)
		if err != nil {
			var zero PriorityEnvelope[MessageEnvelope[U]]

			return zero, err
		}
		if ok {
			return env, nil
		}

		select {
		case <-ctx.Done():
			var zero PriorityEnvelope[MessageEnvelope[U]]

			return zero, ctx.Err()

		case <-m.notify:
			// Loop around and re-check both lanes.
		}
	}
}

// Close marks the mailbox closed. Idempotent. After Close, TrySend always
// fails with ErrQueueClosed, and Recv drains any remaining envelopes before
// resolving to ErrQueueDisconnected.
func (m *Mailbox[U]) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.control.close()
		m.user.close()

		corelog.DebugS(context.Background(), "mailbox closing",
			"subsystem", "MBOX", "control_len", m.control.len(),
			"user_len", m.user.len())

		m.wake()
	})
}

// IsClosed reports whether Close has been called.
func (m *Mailbox[U]) IsClosed() bool {
	return m.closed.Load()
}

// IsEmpty reports whether both lanes are currently empty.
func (m *Mailbox[U]) IsEmpty() bool {
	return m.control.len() == 0 && m.user.len() == 0
}

// Len returns the total number of envelopes queued across both lanes.
func (m *Mailbox[U]) Len() int {
	return m.control.len() + m.user.len()
}
