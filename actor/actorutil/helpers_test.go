package actorutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/actorcore/actor"
)

var errBoom = errors.New("boom")

type echoMsg struct {
	text   string
	id     actor.MetadataID
	ask    bool
	system *actor.System
}

func spawnEcho(t *testing.T, sys *actor.System, suffix string) actor.Ref[echoMsg] {
	t.Helper()

	return actor.SpawnTopLevel[echoMsg](sys, actor.SpawnConfig[echoMsg]{
		Behavior: actor.BehaviorFunc[echoMsg](func(_ context.Context, msg echoMsg) actor.Directive[echoMsg] {
			if msg.ask {
				actor.Respond(msg.system, msg.id, msg.text+suffix)
			}
			return actor.Continue[echoMsg]()
		}),
	})
}

func askBuilder(text string, sys *actor.System) func(actor.MetadataID) echoMsg {
	return func(id actor.MetadataID) echoMsg {
		return echoMsg{text: text, id: id, ask: true, system: sys}
	}
}

// runUntilDone repeatedly drives sys's scheduler until done is closed,
// letting a blocked Await call (running on its own goroutine) observe the
// reply its request produces.
func runUntilDone(t *testing.T, sys *actor.System, done <-chan struct{}) {
	t.Helper()

	require.Eventually(t, func() bool {
		sys.RunUntilIdle(context.Background())
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestAskAwaitRoundTrips(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))
	ref := spawnEcho(t, sys, ":pong")

	var val string
	var askErr error
	done := make(chan struct{})

	go func() {
		val, askErr = AskAwait[echoMsg, string](
			context.Background(), ref, askBuilder("ping", sys),
			actor.PriorityDefault, time.Second,
		)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.NoError(t, askErr)
	require.Equal(t, "ping:pong", val)
}

func TestAskAwaitTypedAssertsConcreteCase(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))
	ref := spawnEcho(t, sys, ":pong")

	var val string
	var askErr error
	done := make(chan struct{})

	go func() {
		val, askErr = AskAwaitTyped[echoMsg, any, string](
			context.Background(), ref, askBuilder("typed", sys),
			actor.PriorityDefault, time.Second,
		)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.NoError(t, askErr)
	require.Equal(t, "typed:pong", val)
}

func TestAskAwaitTypedFailsOnWrongConcreteCase(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))
	ref := spawnEcho(t, sys, ":pong")

	var askErr error
	done := make(chan struct{})

	go func() {
		_, askErr = AskAwaitTyped[echoMsg, any, int](
			context.Background(), ref, askBuilder("typed", sys),
			actor.PriorityDefault, time.Second,
		)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.Error(t, askErr)
}

func TestTellAllIgnoresIndividualFailures(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))

	refs := []actor.Ref[echoMsg]{
		spawnEcho(t, sys, ""), spawnEcho(t, sys, ""), spawnEcho(t, sys, ""),
	}

	refs[1].Stop(context.Background())
	sys.RunUntilIdle(context.Background())

	TellAll[echoMsg](context.Background(), refs, echoMsg{text: "broadcast"})
	sys.RunUntilIdle(context.Background())
}

func TestParallelAskCollectsEachReply(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))

	refs := []actor.Ref[echoMsg]{
		spawnEcho(t, sys, ":a"), spawnEcho(t, sys, ":b"), spawnEcho(t, sys, ":c"),
	}
	builders := []func(actor.MetadataID) echoMsg{
		askBuilder("x", sys), askBuilder("y", sys), askBuilder("z", sys),
	}

	var raw []fn.Result[string]
	done := make(chan struct{})

	go func() {
		raw = ParallelAsk[echoMsg, string](context.Background(), refs, builders,
			actor.PriorityDefault, time.Second)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.Len(t, raw, 3)
	vals := CollectSuccesses(raw)
	require.Equal(t, []string{"x:a", "y:b", "z:c"}, vals)
}

func TestParallelAskSameBroadcastsOneRequest(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))

	refs := []actor.Ref[echoMsg]{spawnEcho(t, sys, ":1"), spawnEcho(t, sys, ":2")}

	var raw []fn.Result[string]
	done := make(chan struct{})

	go func() {
		raw = ParallelAskSame[echoMsg, string](context.Background(), refs,
			askBuilder("same", sys), actor.PriorityDefault, time.Second)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.True(t, AllSucceeded(raw))
	require.Equal(t, []string{"same:1", "same:2"}, CollectSuccesses(raw))
}

func TestFirstSuccessReturnsEarliestReply(t *testing.T) {
	sys := actor.NewSystem(actor.WithName("actorutil-helpers"))

	refs := []actor.Ref[echoMsg]{spawnEcho(t, sys, ":winner")}

	var val string
	var askErr error
	done := make(chan struct{})

	go func() {
		val, askErr = FirstSuccess[echoMsg, string](context.Background(), refs,
			askBuilder("race", sys), actor.PriorityDefault, time.Second)
		close(done)
	}()

	runUntilDone(t, sys, done)

	require.NoError(t, askErr)
	require.Equal(t, "race:winner", val)
}

func TestFirstSuccessFailsWhenNoRefsGiven(t *testing.T) {
	_, err := FirstSuccess[echoMsg, string](context.Background(), nil,
		askBuilder("x", nil), actor.PriorityDefault, time.Second)
	require.Error(t, err)
}

func TestMapResponsesTransformsSuccessesOnlyLeavingFailuresUntouched(t *testing.T) {
	results := []fn.Result[int]{fn.Ok(1), fn.Err[int](errBoom), fn.Ok(3)}

	mapped := MapResponses(results, func(v int) string {
		return "v=" + string(rune('0'+v))
	})

	v0, err0 := mapped[0].Unpack()
	require.NoError(t, err0)
	require.Equal(t, "v=1", v0)

	_, err1 := mapped[1].Unpack()
	require.ErrorIs(t, err1, errBoom)

	v2, err2 := mapped[2].Unpack()
	require.NoError(t, err2)
	require.Equal(t, "v=3", v2)
}

func TestCollectSuccessesDropsFailures(t *testing.T) {
	results := []fn.Result[int]{fn.Ok(1), fn.Err[int](errBoom), fn.Ok(3)}
	require.Equal(t, []int{1, 3}, CollectSuccesses(results))
}

func TestAllSucceededAndFirstError(t *testing.T) {
	ok := []fn.Result[int]{fn.Ok(1), fn.Ok(2)}
	require.True(t, AllSucceeded(ok))
	require.NoError(t, FirstError(ok))

	mixed := []fn.Result[int]{fn.Ok(1), fn.Err[int](errBoom)}
	require.False(t, AllSucceeded(mixed))
	require.ErrorIs(t, FirstError(mixed), errBoom)
}

