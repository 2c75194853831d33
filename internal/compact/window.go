// Package compact replaces a contiguous window of older session events with
// a single LLM-written summary event, keeping an overlap of recent events so
// the conversation stays coherent across the boundary.
package compact

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bdrazn/adkextension/internal/types"
)

// SummaryPrefix marks the summary event's text so downstream consumers can
// recognize replayed compaction output.
const SummaryPrefix = "[Previous conversation summary]\n"

var (
	// ErrNoWindow indicates the event list has not yet crossed an interval
	// boundary or the window is below the minimum size.
	ErrNoWindow = errors.New("no compaction window")

	// ErrEmptySummary indicates the summarizer produced no usable text.
	ErrEmptySummary = errors.New("summarizer returned empty summary")
)

// Summary is the summarizer's output for one window.
type Summary struct {
	Content        types.Content
	StartTimestamp float64
	EndTimestamp   float64
}

// Summarizer condenses a window of events into prose. A nil result with a
// nil error means the summarizer declined (empty model output); the caller
// treats both nil and error as "do not compact".
type Summarizer interface {
	Summarize(ctx context.Context, events []*types.Event) (*Summary, error)
}

// Compactor computes sliding windows over an event list and splices summary
// events in place of them.
type Compactor struct {
	Interval   int
	Overlap    int
	MinEvents  int
	Summarizer Summarizer
}

// NewCompactor validates parameters and returns a Compactor.
func NewCompactor(interval, overlap, minEvents int, s Summarizer) (*Compactor, error) {
	if interval < 1 {
		return nil, fmt.Errorf("interval must be >= 1, got %d", interval)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0, got %d", overlap)
	}
	if s == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	return &Compactor{Interval: interval, Overlap: overlap, MinEvents: minEvents, Summarizer: s}, nil
}

// Window returns the [start, end) compaction window for a list of n events.
// The window ends at the last full interval boundary and reaches back one
// interval plus the overlap. ok is false when no window exists or the window
// is smaller than MinEvents.
func (c *Compactor) Window(n int) (start, end int, ok bool) {
	fullWindows := n / c.Interval
	if fullWindows == 0 {
		return 0, 0, false
	}
	end = fullWindows * c.Interval
	start = end - c.Interval - c.Overlap
	if start < 0 {
		start = 0
	}
	if end-start < c.MinEvents {
		return 0, 0, false
	}
	return start, end, true
}

// Run compacts the current window of events, returning a new event list with
// the window replaced by a single summary event. Returns (nil, ErrNoWindow)
// when no window is due, and (nil, err) when the summarizer fails; in both
// cases the caller keeps the original list. Events outside the window are
// carried over untouched.
func (c *Compactor) Run(ctx context.Context, events []*types.Event) ([]*types.Event, error) {
	start, end, ok := c.Window(len(events))
	if !ok {
		return nil, ErrNoWindow
	}

	toCompact := events[start:end]
	summary, err := c.Summarizer.Summarize(ctx, toCompact)
	if err != nil {
		return nil, fmt.Errorf("summarize window [%d,%d): %w", start, end, err)
	}
	if summary == nil || summaryText(summary) == "" {
		return nil, ErrEmptySummary
	}

	summaryEvent := &types.Event{
		ID:           newSummaryEventID(),
		InvocationID: types.NewInvocationID(),
		// The summary is authored as "user" so every runner replays it;
		// model-authored events may be skipped by some runners.
		Author:    "user",
		Timestamp: toCompact[len(toCompact)-1].Timestamp,
		Content: types.Content{
			Role:  "user",
			Parts: []types.Part{{Text: SummaryPrefix + summaryText(summary)}},
		},
	}

	out := make([]*types.Event, 0, start+1+len(events)-end)
	out = append(out, events[:start]...)
	out = append(out, summaryEvent)
	out = append(out, events[end:]...)
	return out, nil
}

func summaryText(s *Summary) string {
	for _, p := range s.Content.Parts {
		if t := p.PlainText(); t != "" {
			return t
		}
	}
	return ""
}

func newSummaryEventID() string {
	return fmt.Sprintf("compaction_%d_%04d", time.Now().UnixMilli(), rand.Intn(10000))
}
