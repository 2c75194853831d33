package trim

import (
	"testing"

	"github.com/bdrazn/adkextension/internal/tokens"
	"github.com/bdrazn/adkextension/internal/types"
)

// stubRanker selects the messages at the given projection ordinals, in the
// order listed, so tests can exercise out-of-order and duplicate selections.
type stubRanker struct {
	pick []int
}

func (s *stubRanker) SelectByTokenBudget(messages []types.Message, budget int, tokenFn func(types.Message) int) []types.Message {
	var out []types.Message
	for _, ord := range s.pick {
		for _, m := range messages {
			if m.Ordinal == ord {
				out = append(out, m)
			}
		}
	}
	return out
}

func TestPriorityShortInputUnchanged(t *testing.T) {
	est := tokens.CharEstimator{}
	events := []*types.Event{
		sizedEvent("a", 10),
		sizedEvent("b", 10),
		sizedEvent("c", 10),
	}

	got := Priority(&stubRanker{pick: []int{0}}, est, events, 5)
	if len(got) != 3 {
		t.Fatalf("expected pass-through for <=3 messages, got %d events", len(got))
	}
}

func TestPriorityLiftsSelectionInOrder(t *testing.T) {
	est := tokens.CharEstimator{}
	events := []*types.Event{
		sizedEvent("a", 10),
		sizedEvent("b", 10),
		sizedEvent("c", 10),
		sizedEvent("d", 10),
		sizedEvent("e", 10),
	}

	// Ranker returns its picks out of chronological order; the lift must
	// restore it.
	got := Priority(&stubRanker{pick: []int{4, 0, 2}}, est, events, 100)
	want := []string{"a", "c", "e"}
	ids := eventIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestPriorityDeduplicatesSelection(t *testing.T) {
	est := tokens.CharEstimator{}
	events := []*types.Event{
		sizedEvent("a", 10),
		sizedEvent("b", 10),
		sizedEvent("c", 10),
		sizedEvent("d", 10),
	}

	got := Priority(&stubRanker{pick: []int{1, 1, 3}}, est, events, 100)
	ids := eventIDs(got)
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "d" {
		t.Fatalf("got %v, want [b d]", ids)
	}
}

func TestPrioritySkipsWhitespaceEventsInProjection(t *testing.T) {
	est := tokens.CharEstimator{}
	blank := &types.Event{ID: "blank", Author: "user",
		Content: types.Content{Parts: []types.Part{{Text: "   "}}}}
	events := []*types.Event{
		sizedEvent("a", 10),
		blank,
		sizedEvent("b", 10),
		sizedEvent("c", 10),
		sizedEvent("d", 10),
	}

	// Ordinals address the projection (a=0, b=1, c=2, d=3); the blank event
	// is invisible to the ranker.
	got := Priority(&stubRanker{pick: []int{1, 3}}, est, events, 100)
	ids := eventIDs(got)
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "d" {
		t.Fatalf("got %v, want [b d]", ids)
	}
}

// Property: the result is a subsequence of the input in original order.
func TestPrioritySubsequenceProperty(t *testing.T) {
	est := tokens.CharEstimator{}
	events := make([]*types.Event, 8)
	for i := range events {
		events[i] = sizedEvent(string(rune('a'+i)), 10)
	}

	got := Priority(&stubRanker{pick: []int{6, 1, 3, 5}}, est, events, 100)
	pos := -1
	for _, ev := range got {
		found := -1
		for i, src := range events {
			if src == ev {
				found = i
				break
			}
		}
		if found <= pos {
			t.Fatalf("result not an order-preserving subsequence")
		}
		pos = found
	}
}
