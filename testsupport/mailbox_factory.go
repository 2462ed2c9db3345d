// Package testsupport is an in-memory mailbox builder for unit tests that
// want to drive a Behavior directly, without spinning up a System or
// scheduler (DESIGN.md: grounded on the teacher's habit of exposing small,
// dependency-free test doubles alongside the package they support, and on
// this module's own actor.Mailbox as the thing being built).
package testsupport

import (
	"context"

	"github.com/roasbeef/actorcore/actor"
)

// MailboxFactory builds actor.Mailbox instances with a fixed capacity
// policy, shared across every mailbox it constructs — mirroring how a real
// System applies one SpawnConfig's capacity/policy choices uniformly. Its
// zero value is an unbounded, blocking-on-overflow factory.
type MailboxFactory struct {
	controlCapacity int
	userCapacity    int
	userPolicy      actor.OverflowPolicy
}

// NewMailboxFactory builds a factory enforcing controlCapacity/userCapacity
// and userPolicy on every mailbox it constructs. A capacity of 0 means
// unbounded for that lane.
func NewMailboxFactory(controlCapacity, userCapacity int, userPolicy actor.OverflowPolicy) MailboxFactory {
	return MailboxFactory{
		controlCapacity: controlCapacity,
		userCapacity:    userCapacity,
		userPolicy:      userPolicy,
	}
}

// Unbounded returns a factory whose mailboxes never drop or block on
// overflow (both lanes unlimited).
func Unbounded() MailboxFactory {
	return MailboxFactory{userPolicy: actor.OverflowBlock}
}

// WithCapacityPerQueue returns a factory applying the same bounded capacity
// to both lanes with the given overflow policy on the user lane (the
// control lane always rejects with ErrQueueFull rather than drops, per
// actor.NewMailbox).
func WithCapacityPerQueue(capacity int, userPolicy actor.OverflowPolicy) MailboxFactory {
	return NewMailboxFactory(capacity, capacity, userPolicy)
}

// BuildMailbox constructs a fresh *actor.Mailbox[M] using this factory's
// capacity policy. Defined as a free function, not a MailboxFactory method,
// since Go methods cannot introduce the type parameter M.
func BuildMailbox[M any](f MailboxFactory) *actor.Mailbox[M] {
	return actor.NewMailbox[M](f.controlCapacity, f.userCapacity, f.userPolicy)
}

// SendUser enqueues payload on mb's regular lane at default priority,
// bypassing any Ref/Cell plumbing — useful for arranging a mailbox's
// contents before asserting on drain order.
func SendUser[M any](mb *actor.Mailbox[M], payload M) error {
	return mb.TrySend(actor.NewPriorityEnvelope(actor.UserEnvelope(payload), actor.PriorityDefault))
}

// SendUserPriority is SendUser with an explicit priority.
func SendUserPriority[M any](mb *actor.Mailbox[M], payload M, priority int8) error {
	return mb.TrySend(actor.NewPriorityEnvelope(actor.UserEnvelope(payload), priority))
}

// SendControl enqueues a system signal onto mb's control lane at its
// recommended default priority.
func SendControl[M any](mb *actor.Mailbox[M], sys actor.SystemMessage) error {
	env := actor.FromSystemMessage(sys, func(s actor.SystemMessage) actor.MessageEnvelope[M] {
		return actor.SystemEnvelope[M](s)
	})

	return mb.TrySend(env)
}

// DrainAll pops every currently-available envelope from mb (control lane
// first, then user, matching the real dispatch order) and returns their
// user payloads, skipping system envelopes. Intended for assertions against
// the order a Behavior would actually observe, not production use.
func DrainAll[M any](mb *actor.Mailbox[M]) []M {
	var out []M

	for {
		env, ok, err := mb.TryDequeue()
		if err != nil || !ok {
			return out
		}

		if user, isUser := env.Message.User(); isUser {
			out = append(out, user.Payload)
		}
	}
}

// RecvUser blocks until the next user-lane payload arrives on mb, skipping
// and discarding any system envelopes in between (a plain Behavior test
// usually only cares about its own traffic).
func RecvUser[M any](ctx context.Context, mb *actor.Mailbox[M]) (M, error) {
	for {
		env, err := mb.Recv(ctx)
		if err != nil {
			var zero M
			return zero, err
		}

		if user, ok := env.Message.User(); ok {
			return user.Payload, nil
		}
	}
}
