package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxControlDrainsBeforeUser(t *testing.T) {
	mb := NewMailbox[string](4, 4, OverflowBlock)

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope("user-msg"), 10)))
	require.NoError(t, mb.TrySend(FromSystemMessage[MessageEnvelope[string]](
		StopSignal{}, func(s SystemMessage) MessageEnvelope[string] {
			return SystemEnvelope[string](s)
		},
	)))

	env, ok, err := mb.TryDequeue()
	require.NoError(t, err)
	require.True(t, ok)

	sys, isSystem := env.Message.System()
	require.True(t, isSystem)
	require.Equal(t, "Stop", sys.Name())

	env, ok, err = mb.TryDequeue()
	require.NoError(t, err)
	require.True(t, ok)

	user, ok := env.Message.User()
	require.True(t, ok)
	require.Equal(t, "user-msg", user.Payload)
}

func TestMailboxSuspendedOnlyDequeuesControl(t *testing.T) {
	mb := NewMailbox[int](4, 4, OverflowBlock)

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(1), 0)))

	_, ok, err := mb.TryDequeueControlOnly()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mb.TrySend(FromSystemMessage[MessageEnvelope[int]](
		ResumeSignal{}, func(s SystemMessage) MessageEnvelope[int] {
			return SystemEnvelope[int](s)
		},
	)))

	env, ok, err := mb.TryDequeueControlOnly()
	require.NoError(t, err)
	require.True(t, ok)

	sys, isSystem := env.Message.System()
	require.True(t, isSystem)
	require.Equal(t, "Resume", sys.Name())
}

func TestMailboxCloseDrainsThenDisconnects(t *testing.T) {
	mb := NewMailbox[int](4, 4, OverflowBlock)

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(1), 0)))
	mb.Close()

	require.True(t, mb.IsClosed())
	require.ErrorIs(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(2), 0)), ErrQueueClosed)

	env, ok, err := mb.TryDequeue()
	require.NoError(t, err)
	require.True(t, ok)
	user, _ := env.Message.User()
	require.Equal(t, 1, user.Payload)

	_, ok, err = mb.TryDequeue()
	require.False(t, ok)
	require.ErrorIs(t, err, ErrQueueDisconnected)
}

func TestMailboxRecvCancellationSafe(t *testing.T) {
	mb := NewMailbox[int](4, 4, OverflowBlock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mb.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(42), 0)))

	env, err := mb.Recv(context.Background())
	require.NoError(t, err)
	user, _ := env.Message.User()
	require.Equal(t, 42, user.Payload)
}

func TestMailboxScheduleHookFiresOnSend(t *testing.T) {
	mb := NewMailbox[int](4, 4, OverflowBlock)

	fired := make(chan struct{}, 1)
	mb.SetScheduleHook(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(1), 0)))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("schedule hook never fired")
	}
}

func TestMailboxDropOldestPolicyEvicts(t *testing.T) {
	mb := NewMailbox[int](4, 2, OverflowDropOldest)

	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(1), 0)))
	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(2), 0)))
	require.NoError(t, mb.TrySend(NewPriorityEnvelope(UserEnvelope(3), 0)))

	require.Equal(t, 2, mb.Len())

	env, ok, err := mb.TryDequeue()
	require.NoError(t, err)
	require.True(t, ok)
	user, _ := env.Message.User()
	require.Equal(t, 2, user.Payload)
}
