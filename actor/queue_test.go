package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQueueBackendBlockOverflow(t *testing.T) {
	q := newQueueBackend[int](2, OverflowBlock)

	_, err := q.offer(1)
	require.NoError(t, err)
	_, err = q.offer(2)
	require.NoError(t, err)

	_, err = q.offer(3)
	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, 2, q.len())
}

func TestQueueBackendDropNewest(t *testing.T) {
	q := newQueueBackend[int](2, OverflowDropNewest)

	_, _ = q.offer(1)
	_, _ = q.offer(2)

	outcome, err := q.offer(3)
	require.NoError(t, err)
	require.Equal(t, OfferDroppedNewest, outcome.Kind)

	out := q.poll()
	require.Equal(t, PollMessage, out.Kind)
	require.Equal(t, 1, out.Item)

	out = q.poll()
	require.Equal(t, PollMessage, out.Kind)
	require.Equal(t, 2, out.Item)
}

func TestQueueBackendDropOldest(t *testing.T) {
	q := newQueueBackend[int](2, OverflowDropOldest)

	_, _ = q.offer(1)
	_, _ = q.offer(2)

	outcome, err := q.offer(3)
	require.NoError(t, err)
	require.Equal(t, OfferDroppedOldest, outcome.Kind)
	require.Equal(t, 2, q.len())

	out := q.poll()
	require.Equal(t, PollMessage, out.Kind)
	require.Equal(t, 2, out.Item)

	out = q.poll()
	require.Equal(t, PollMessage, out.Kind)
	require.Equal(t, 3, out.Item)
}

func TestQueueBackendGrow(t *testing.T) {
	q := newQueueBackend[int](1, OverflowGrow)

	_, _ = q.offer(1)
	outcome, err := q.offer(2)
	require.NoError(t, err)
	require.Equal(t, OfferGrewTo, outcome.Kind)
	require.GreaterOrEqual(t, outcome.Count, 2)
	require.Equal(t, 2, q.len())
}

func TestQueueBackendCloseDrainsExisting(t *testing.T) {
	q := newQueueBackend[int](4, OverflowBlock)

	_, _ = q.offer(1)
	_, _ = q.offer(2)

	ok := q.close()
	require.True(t, ok)
	require.False(t, q.close(), "close must be idempotent")

	out := q.poll()
	require.Equal(t, PollMessage, out.Kind)
	require.Equal(t, 1, out.Item)

	out = q.poll()
	require.Equal(t, PollClosed, out.Kind)
	require.Equal(t, 2, out.Item)

	out = q.poll()
	require.Equal(t, PollDisconnected, out.Kind)
}

func TestQueueBackendOfferAfterCloseFails(t *testing.T) {
	q := newQueueBackend[int](4, OverflowBlock)
	q.close()

	_, err := q.offer(1)
	require.ErrorIs(t, err, ErrQueueClosed)
}

type prioritized struct {
	priority int8
	seq      int
}

func higherPriorityFirstTest(cand, best prioritized) bool {
	return cand.priority > best.priority
}

func TestQueueBackendPollByFIFOWithinPriority(t *testing.T) {
	q := newQueueBackend[prioritized](8, OverflowBlock)

	items := []prioritized{
		{priority: 0, seq: 0},
		{priority: 5, seq: 1},
		{priority: 5, seq: 2},
		{priority: 3, seq: 3},
		{priority: 5, seq: 4},
	}
	for _, it := range items {
		_, err := q.offer(it)
		require.NoError(t, err)
	}

	var drained []int
	for {
		out := q.pollBy(higherPriorityFirstTest)
		if out.Kind != PollMessage {
			break
		}
		drained = append(drained, out.Item.seq)
	}

	// All priority-5 items (inserted in order 1, 2, 4) drain before the
	// priority-3 item (3), which drains before the priority-0 item (0).
	require.Equal(t, []int{1, 2, 4, 3, 0}, drained)
}

// TestQueueBackendPollByRespectsInsertionOrderProperty checks, for a random
// permutation of priorities, that pollBy always yields a sequence that is
// non-increasing in priority and that items sharing a priority come out in
// the order they were inserted (FIFO tie-breaking).
func TestQueueBackendPollByRespectsInsertionOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(rt, "n")
		q := newQueueBackend[prioritized](n, OverflowGrow)

		for i := 0; i < n; i++ {
			p := int8(rapid.IntRange(-4, 4).Draw(rt, "priority"))
			if _, err := q.offer(prioritized{priority: p, seq: i}); err != nil {
				rt.Fatal(err)
			}
		}

		var lastPriority *int8
		lastSeqByPriority := map[int8]int{}

		for {
			out := q.pollBy(higherPriorityFirstTest)
			if out.Kind != PollMessage {
				break
			}

			if lastPriority != nil && out.Item.priority > *lastPriority {
				rt.Fatalf("priorities must drain non-increasing: got %d after %d",
					out.Item.priority, *lastPriority)
			}
			p := out.Item.priority
			lastPriority = &p

			if seenSeq, ok := lastSeqByPriority[p]; ok && out.Item.seq <= seenSeq {
				rt.Fatalf("items at priority %d must drain FIFO: got seq %d after %d",
					p, out.Item.seq, seenSeq)
			}
			lastSeqByPriority[p] = out.Item.seq
		}
	})
}
