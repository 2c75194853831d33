package trim

import (
	"sort"

	"github.com/bdrazn/adkextension/internal/adapter"
	"github.com/bdrazn/adkextension/internal/tokens"
	"github.com/bdrazn/adkextension/internal/types"
)

// Ranker scores projected messages and selects a subset under a token
// budget, preserving the messages' relative order.
type Ranker interface {
	SelectByTokenBudget(messages []types.Message, budget int, tokenFn func(types.Message) int) []types.Message
}

// minMessagesToTrim is the projection size below which trimming is
// meaningless: with three or fewer messages there is nothing worth evicting.
const minMessagesToTrim = 3

// Priority projects events to messages, asks the ranker for a subset under
// the budget, and lifts the selection back to events in chronological order.
// The returned list is always an order-preserving subsequence of the input;
// reordering a model turn would break tool-call causality.
//
// The caller is responsible for falling back to FIFO when the result is not
// strictly smaller than the input.
func Priority(r Ranker, est tokens.Estimator, events []*types.Event, budget int) []*types.Event {
	messages, indices := adapter.ToMessages(events)
	if len(messages) <= minMessagesToTrim {
		return events
	}

	tokenFn := func(m types.Message) int {
		return tokens.Message(est, m)
	}
	selected := r.SelectByTokenBudget(messages, budget, tokenFn)

	picked := make([]int, 0, len(selected))
	for _, m := range selected {
		if m.Ordinal < 0 || m.Ordinal >= len(indices) {
			continue
		}
		picked = append(picked, indices[m.Ordinal])
	}
	sort.Ints(picked)

	out := make([]*types.Event, 0, len(picked))
	prev := -1
	for _, idx := range picked {
		if idx == prev {
			continue
		}
		out = append(out, events[idx])
		prev = idx
	}
	return out
}
