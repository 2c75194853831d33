package gateway

import (
	"testing"

	"github.com/bdrazn/adkextension/internal/types"
)

func TestDeltaTrackerPrefixLaw(t *testing.T) {
	d := &deltaTracker{}

	if got := d.delta("Hello"); got != "Hello" {
		t.Errorf("first delta = %q", got)
	}
	if got := d.delta("Hello world"); got != " world" {
		t.Errorf("extension delta = %q", got)
	}
	// A restarted stream does not extend the previous text: resend in full.
	if got := d.delta("Hi"); got != "Hi" {
		t.Errorf("restart delta = %q", got)
	}
	if d.current() != "Hi" {
		t.Errorf("current = %q", d.current())
	}
}

func TestDeltaTrackerEmptyAndRepeat(t *testing.T) {
	d := &deltaTracker{}
	if got := d.delta(""); got != "" {
		t.Errorf("empty delta = %q", got)
	}
	d.delta("abc")
	if got := d.delta("abc"); got != "" {
		t.Errorf("repeat delta = %q", got)
	}
}

// Concatenating all deltas reconstructs the final text.
func TestDeltaTrackerReconstruction(t *testing.T) {
	d := &deltaTracker{}
	var rebuilt string
	for _, cumulative := range []string{"a", "ab", "abc", "abcd"} {
		rebuilt += d.delta(cumulative)
	}
	if rebuilt != "abcd" {
		t.Errorf("rebuilt = %q", rebuilt)
	}
}

func TestThoughtAndAnswerExtraction(t *testing.T) {
	ev := &types.Event{
		Content: types.Content{Parts: []types.Part{
			{Text: "let me think", Thought: true},
			{Text: "the answer"},
			{Text: " continues"},
		}},
	}

	if got := thoughtText(ev); got != "let me think" {
		t.Errorf("thoughtText = %q", got)
	}
	if got := answerText(ev); got != "the answer continues" {
		t.Errorf("answerText = %q", got)
	}
}
