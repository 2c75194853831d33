package compact

import (
	"context"

	"github.com/bdrazn/adkextension/internal/scope"
	"github.com/bdrazn/adkextension/internal/types"
	"github.com/bdrazn/adkextension/pkg/llm"
)

// ProviderFactory builds an LLM provider for a given configuration. Indirect
// so the per-request model override can swap the endpoint without the
// summarizer knowing transport details, and so tests can inject fakes.
type ProviderFactory func(cfg *llm.Config) llm.Provider

// LLMSummarizer condenses event windows through one non-streaming chat
// completion against an OpenAI-compatible endpoint.
type LLMSummarizer struct {
	base        llm.Config
	newProvider ProviderFactory
}

// NewLLMSummarizer creates a summarizer over the given base transport
// configuration.
func NewLLMSummarizer(base llm.Config, factory ProviderFactory) *LLMSummarizer {
	return &LLMSummarizer{base: base, newProvider: factory}
}

// Summarize projects the events to a single prompt and issues one
// completion. It returns (nil, nil) when the model produces no content and
// (nil, err) on transport failure; compaction treats both as a no-op, so a
// flaky summarizer can never break a turn.
func (s *LLMSummarizer) Summarize(ctx context.Context, events []*types.Event) (*Summary, error) {
	if len(events) == 0 {
		return nil, nil
	}

	cfg := s.base
	if sc := scope.FromContext(ctx); sc != nil && sc.ModelOverride != nil {
		if sc.ModelOverride.Model != "" {
			cfg.Model = sc.ModelOverride.Model
		}
		if sc.ModelOverride.BaseURL != "" {
			cfg.BaseURL = sc.ModelOverride.BaseURL
		}
	}

	provider := s.newProvider(&cfg)
	resp, err := provider.Complete(ctx, []llm.Message{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: buildSummaryPrompt(events)},
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, nil
	}

	return &Summary{
		Content: types.Content{
			Role:  "user",
			Parts: []types.Part{{Text: resp.Content}},
		},
		StartTimestamp: events[0].Timestamp,
		EndTimestamp:   events[len(events)-1].Timestamp,
	}, nil
}
