package actor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/actorcore/internal/corelog"
)

type echoRequest struct {
	text     string
	metaID   MetadataID
	metaTag  bool
	replyVia *System
}

type echoBehavior struct{}

func (echoBehavior) Receive(ctx context.Context, msg echoRequest) Directive[echoRequest] {
	if msg.metaTag {
		RespondWith(msg.replyVia.meta, msg.metaID, "echo:"+msg.text)
	}

	return Continue[echoRequest]()
}

func TestSystemSpawnTellAndRunUntilIdle(t *testing.T) {
	sys := NewSystem(WithName("test"))

	received := make(chan string, 1)

	ref := SpawnTopLevel[echoRequest](sys, SpawnConfig[echoRequest]{
		Behavior: BehaviorFunc[echoRequest](func(_ context.Context, msg echoRequest) Directive[echoRequest] {
			received <- msg.text
			return Continue[echoRequest]()
		}),
	})

	require.NoError(t, ref.Tell(context.Background(), echoRequest{text: "hello"}))

	n := sys.RunUntilIdle(context.Background())
	require.GreaterOrEqual(t, n, 1)

	select {
	case got := <-received:
		require.Equal(t, "hello", got)
	default:
		t.Fatal("message was never dispatched")
	}
}

func TestSystemAskRefRoundTrips(t *testing.T) {
	sys := NewSystem(WithName("test"))

	ref := SpawnTopLevel[echoRequest](sys, SpawnConfig[echoRequest]{
		Behavior: echoBehavior{},
	})

	future := AskRef[echoRequest, string](context.Background(), ref,
		func(id MetadataID) echoRequest {
			return echoRequest{text: "ping", metaID: id, metaTag: true, replyVia: sys}
		}, PriorityDefault, time.Second)

	sys.RunUntilIdle(context.Background())

	val, err := future.Await(context.Background()).Unpack()
	require.NoError(t, err)
	require.Equal(t, "echo:ping", val)
}

func TestSystemSpawnChildEscalationReachesRoot(t *testing.T) {
	sys := NewSystem(WithName("test"))

	parentSupervisor := SupervisorFunc(func(FailureInfo) SupervisorDirective {
		return DirectiveEscalate
	})

	parent := SpawnTopLevel[int](sys, SpawnConfig[int]{
		Behavior:   &countingBehavior{},
		Supervisor: parentSupervisor,
	})

	childSupervisor := SupervisorFunc(func(FailureInfo) SupervisorDirective {
		return DirectiveEscalate
	})

	child := SpawnChild[int, int](sys, parent, SpawnConfig[int]{
		Behavior: BehaviorFunc[int](func(_ context.Context, _ int) Directive[int] {
			return Fail[int]("boom")
		}),
		Supervisor: childSupervisor,
	})

	require.NoError(t, child.Tell(context.Background(), 1))

	sys.RunUntilIdle(context.Background())

	escalations := sys.TakeEscalations()
	require.Len(t, escalations, 1)
	require.Equal(t, uint8(2), escalations[0].Stage.Hops(), "one hop child->parent, one hop parent->root")
}

func TestSystemWatchNotifiesOnStop(t *testing.T) {
	sys := NewSystem(WithName("test"))

	target := SpawnTopLevel[int](sys, SpawnConfig[int]{Behavior: &countingBehavior{}})

	watcher := SpawnTopLevel[int](sys, SpawnConfig[int]{
		Behavior: BehaviorFunc[int](func(_ context.Context, _ int) Directive[int] {
			return Continue[int]()
		}),
	})

	require.NoError(t, target.Watch(watcher.Pid()))

	target.Stop(context.Background())
	sys.RunUntilIdle(context.Background())
}

func TestSystemDeadLettersCapturePostStopSends(t *testing.T) {
	sys := NewSystem(WithName("test"))

	var captured []DeadLetterEnvelope
	sys.DeadLetters().Subscribe(func(env DeadLetterEnvelope) {
		captured = append(captured, env)
	})

	ref := SpawnTopLevel[int](sys, SpawnConfig[int]{Behavior: &countingBehavior{}})
	ref.Stop(context.Background())
	sys.RunUntilIdle(context.Background())

	_, ok := sys.Registry().ResolveOrDeadLetter(ref.Pid(), 42)
	require.False(t, ok)
	require.NotEmpty(t, captured)
}

func TestSystemExtensionsRegisterAndLookup(t *testing.T) {
	sys := NewSystem(WithName("test"))

	sys.Extensions().Register("conn-pool", 7)

	v, ok := sys.Extensions().Lookup("conn-pool")
	require.True(t, ok)
	require.Equal(t, 7, v)

	_, ok = sys.Extensions().Lookup("missing")
	require.False(t, ok)
}

func TestSystemRootPidIsStable(t *testing.T) {
	sys := NewSystem(WithName("named-system"))
	require.Equal(t, "named-system", sys.RootPid().System)
}

func TestSystemMetricsSinkObservesActorRegistration(t *testing.T) {
	sink := &recordingActorMetricsSink{}
	sys := NewSystem(WithName("test"), WithMetricsSink(sink))

	// NewSystem already spawned the root guardian.
	require.EqualValues(t, 1, sink.registered.Load())

	ref := SpawnTopLevel[int](sys, SpawnConfig[int]{Behavior: &countingBehavior{}})
	require.EqualValues(t, 2, sink.registered.Load())

	ref.Stop(context.Background())
	sys.RunUntilIdle(context.Background())

	require.EqualValues(t, 1, sink.deregistered.Load())
}

func TestWithLogHandlersFansOutSystemLifecycleLogs(t *testing.T) {
	t.Cleanup(func() { corelog.UseLogger(btclog.Disabled) })

	var console, file bytes.Buffer

	NewSystem(
		WithName("logged-system"),
		WithLogHandlers(
			btclogv2.NewDefaultHandler(&console),
			btclogv2.NewDefaultHandler(&file),
		),
	)

	require.Contains(t, console.String(), "logged-system")
	require.Contains(t, file.String(), "logged-system")
}
