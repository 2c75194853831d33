package strategies

import (
	"sort"
	"strings"

	"github.com/bdrazn/adkextension/internal/types"
)

// HeuristicRanker scores messages without any model call. Recency dominates,
// user turns outrank assistant turns, questions and messages carrying an
// emphasis term get a nudge, and messages over 4000 characters are penalized.
// Deterministic on its input.
type HeuristicRanker struct{}

// NewHeuristicRanker returns the default ranker.
func NewHeuristicRanker() *HeuristicRanker {
	return &HeuristicRanker{}
}

// emphasisTerms mark messages that tend to carry durable constraints.
var emphasisTerms = []string{"must", "never", "always", "remember", "important", "error", "fail"}

func (r *HeuristicRanker) score(m types.Message, total int) (float64, []string) {
	var reasons []string

	// Position in (0,1]: the newest message gets 1.
	recency := float64(m.Ordinal+1) / float64(total)
	score := recency
	reasons = append(reasons, "recency")

	if m.Role == types.RoleUser {
		score += 0.35
		reasons = append(reasons, "user turn")
	}

	text := strings.ToLower(m.Text())
	if strings.Contains(text, "?") {
		score += 0.15
		reasons = append(reasons, "question")
	}
	for _, term := range emphasisTerms {
		if strings.Contains(text, term) {
			score += 0.1
			reasons = append(reasons, "emphasis: "+term)
			break
		}
	}
	if len(text) > 4000 {
		score -= 0.2
		reasons = append(reasons, "oversized")
	}

	return score, reasons
}

// SortByPriority returns all messages scored, highest first. Ties keep the
// newer message first.
func (r *HeuristicRanker) SortByPriority(messages []types.Message) []Scored {
	total := len(messages)
	out := make([]Scored, total)
	for i, m := range messages {
		score, reasons := r.score(m, total)
		out[i] = Scored{Score: score, Reasons: reasons, Message: m}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Message.Ordinal > out[j].Message.Ordinal
	})
	return out
}

// SelectByTokenBudget greedily takes the highest-scored messages that fit
// the budget and returns them in their original projection order.
func (r *HeuristicRanker) SelectByTokenBudget(messages []types.Message, budget int, tokenFn func(types.Message) int) []types.Message {
	ranked := r.SortByPriority(messages)

	used := 0
	var picked []types.Message
	for _, s := range ranked {
		cost := tokenFn(s.Message)
		if used+cost > budget {
			continue
		}
		used += cost
		picked = append(picked, s.Message)
	}

	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Ordinal < picked[j].Ordinal
	})
	return picked
}

// SelectTopMessages returns the n highest-scored messages in original order.
func (r *HeuristicRanker) SelectTopMessages(messages []types.Message, n int) []types.Message {
	if n <= 0 {
		return nil
	}
	ranked := r.SortByPriority(messages)
	if n > len(ranked) {
		n = len(ranked)
	}

	picked := make([]types.Message, n)
	for i := 0; i < n; i++ {
		picked[i] = ranked[i].Message
	}
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Ordinal < picked[j].Ordinal
	})
	return picked
}
