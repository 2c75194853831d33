package gateway

import (
	"strings"

	"github.com/bdrazn/adkextension/internal/types"
)

// deltaTracker computes the unsent suffix of a growing string. When the new
// text no longer extends the previous one the stream has restarted, and the
// full text is re-sent.
type deltaTracker struct {
	last string
}

func (d *deltaTracker) delta(text string) string {
	if strings.HasPrefix(text, d.last) {
		out := text[len(d.last):]
		d.last = text
		return out
	}
	d.last = text
	return text
}

// current returns the full text seen so far.
func (d *deltaTracker) current() string {
	return d.last
}

// thoughtText concatenates the event's reasoning parts.
func thoughtText(ev *types.Event) string {
	var b strings.Builder
	for _, p := range ev.Content.Parts {
		if p.Thought {
			b.WriteString(p.PlainText())
		}
	}
	return b.String()
}

// answerText concatenates the event's non-reasoning parts, the runner's
// canonical stringification of the turn so far.
func answerText(ev *types.Event) string {
	var b strings.Builder
	for _, p := range ev.Content.Parts {
		if !p.Thought {
			b.WriteString(p.PlainText())
		}
	}
	return b.String()
}
