package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdrazn/adkextension/internal/types"
)

// Stuck types reported by the repetition detector.
const (
	StuckRepetition = "repetition"
	StuckErrorLoop  = "error_loop"
)

// repetitionWindow is how many trailing assistant messages are inspected.
const repetitionWindow = 6

// RepetitionDetector flags conversations where the assistant keeps producing
// the same output or the same error.
type RepetitionDetector struct{}

// NewRepetitionDetector returns the default stuck detector.
func NewRepetitionDetector() *RepetitionDetector {
	return &RepetitionDetector{}
}

var _ StuckDetector = (*RepetitionDetector)(nil)

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// DetectStuck counts duplicated assistant outputs in the trailing window.
// The same normalized text appearing two or more times is a repetition loop;
// three or more error-bearing outputs is an error loop.
func (d *RepetitionDetector) DetectStuck(_ context.Context, messages []types.Message) (*Detection, error) {
	var recent []string
	for i := len(messages) - 1; i >= 0 && len(recent) < repetitionWindow; i-- {
		if messages[i].Role != types.RoleAssistant {
			continue
		}
		text := normalize(messages[i].Text())
		if text == "" {
			continue
		}
		recent = append(recent, text)
	}
	if len(recent) < 2 {
		return &Detection{IsStuck: false}, nil
	}

	counts := make(map[string]int)
	errorish := 0
	for _, text := range recent {
		counts[text]++
		if strings.Contains(text, "error") || strings.Contains(text, "failed") {
			errorish++
		}
	}

	var dupes int
	var evidence []string
	for text, n := range counts {
		if n >= 2 {
			dupes += n
			evidence = append(evidence, fmt.Sprintf("repeated %dx: %.80s", n, text))
		}
	}

	switch {
	case dupes >= 2:
		return &Detection{
			IsStuck:         true,
			Type:            StuckRepetition,
			Confidence:      min1(float64(dupes) / float64(len(recent))),
			Evidence:        evidence,
			SuggestedAction: "change approach instead of repeating the last answer",
		}, nil
	case errorish >= 3:
		return &Detection{
			IsStuck:         true,
			Type:            StuckErrorLoop,
			Confidence:      min1(float64(errorish) / float64(len(recent))),
			Evidence:        []string{fmt.Sprintf("%d of last %d replies mention errors", errorish, len(recent))},
			SuggestedAction: "step back and diagnose the root cause",
		}, nil
	default:
		return &Detection{IsStuck: false}, nil
	}
}

// GenerateRecoveryMessage renders a steering note for the detected loop.
func (d *RepetitionDetector) GenerateRecoveryMessage(_ context.Context, detection *Detection) (types.Content, error) {
	if detection == nil || !detection.IsStuck {
		return types.Content{}, fmt.Errorf("no stuck condition to recover from")
	}

	action := detection.SuggestedAction
	if action == "" {
		action = "try a different approach"
	}
	text := fmt.Sprintf(
		"Note: the conversation appears to be stuck (%s). Before answering, %s.",
		detection.Type, action)

	return types.Content{
		Role:  "user",
		Parts: []types.Part{{Text: text}},
	}, nil
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
