// Package trim selects a subset of session events that fits a token budget.
// Two disciplines cooperate: priority selection via an external ranker, and
// a recency-preserving FIFO fallback.
package trim

import (
	"github.com/bdrazn/adkextension/internal/tokens"
	"github.com/bdrazn/adkextension/internal/types"
)

// FIFO returns the longest suffix of events whose cumulative token estimate
// fits the budget. The result is never empty: if even the newest event alone
// exceeds the budget, that single event is returned anyway, because a turn
// with no history at all is worse than one oversized event.
func FIFO(est tokens.Estimator, events []*types.Event, budget int) []*types.Event {
	if len(events) == 0 {
		return events
	}

	used := 0
	start := len(events)
	for i := len(events) - 1; i >= 0; i-- {
		cost := tokens.Event(est, events[i])
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}

	if start == len(events) {
		return events[len(events)-1:]
	}
	return events[start:]
}
