// Package tokens approximates token counts for budget decisions. The
// estimate is intentionally cheap; the model's own tokenizer is authoritative
// only for overflow detection.
package tokens

import (
	"github.com/bdrazn/adkextension/internal/types"
)

// Estimator converts text to an approximate token count. Implementations
// must be monotone: more text never yields fewer tokens.
type Estimator interface {
	CountText(text string) int
}

// CharEstimator approximates tokens as ceil(len/4). Under-counts non-Latin
// scripts by roughly 2x; acceptable because the trimming buffer absorbs the
// slack.
type CharEstimator struct{}

func (CharEstimator) CountText(text string) int {
	return (len(text) + 3) / 4
}

// Part estimates tokens for one part. Binary parts contribute zero here;
// only the message adapter renders them as placeholder text.
func Part(est Estimator, p types.Part) int {
	text := p.PlainText()
	if text == "" {
		return 0
	}
	return est.CountText(text)
}

// Event estimates tokens for an event as the sum over its parts.
func Event(est Estimator, ev *types.Event) int {
	total := 0
	for _, p := range ev.Content.Parts {
		total += Part(est, p)
	}
	return total
}

// Events estimates tokens for an event list.
func Events(est Estimator, events []*types.Event) int {
	total := 0
	for _, ev := range events {
		total += Event(est, ev)
	}
	return total
}

// Message estimates tokens for a projected message.
func Message(est Estimator, m types.Message) int {
	total := 0
	for _, c := range m.Content {
		if c.Value == "" {
			continue
		}
		total += est.CountText(c.Value)
	}
	return total
}
