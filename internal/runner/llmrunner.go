package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/bdrazn/adkextension/internal/adapter"
	"github.com/bdrazn/adkextension/internal/scope"
	"github.com/bdrazn/adkextension/internal/types"
	"github.com/bdrazn/adkextension/pkg/llm"
)

// ProviderFactory builds a provider for a given configuration, letting the
// per-request model override swap endpoints and tests inject fakes.
type ProviderFactory func(cfg *llm.Config) llm.Provider

// LLMRunner replays the session history to an OpenAI-compatible model and
// yields cumulative events as tokens arrive.
type LLMRunner struct {
	base            llm.Config
	newProvider     ProviderFactory
	toolExecutorURL string
}

// NewLLMRunner creates a runner over the given base transport configuration.
func NewLLMRunner(base llm.Config, factory ProviderFactory, toolExecutorURL string) *LLMRunner {
	return &LLMRunner{base: base, newProvider: factory, toolExecutorURL: toolExecutorURL}
}

var _ Runner = (*LLMRunner)(nil)

func (r *LLMRunner) systemPrompt(sess *types.Session, toolExecutorURL string) string {
	prompt := fmt.Sprintf(
		"You are a helpful assistant. Current time: %s. Session: %s.",
		time.Now().Format(time.RFC3339), sess.ID)
	if toolExecutorURL != "" {
		prompt += fmt.Sprintf(" A tool executor is available at %s.", toolExecutorURL)
	}
	return prompt
}

// buildMessages projects the session view and appends the incoming message.
func (r *LLMRunner) buildMessages(sess *types.Session, newMessage types.Content, toolExecutorURL string) []llm.Message {
	projected, _ := adapter.ToMessages(sess.Events)

	out := make([]llm.Message, 0, len(projected)+2)
	out = append(out, llm.Message{Role: "system", Content: r.systemPrompt(sess, toolExecutorURL)})
	for _, m := range projected {
		out = append(out, llm.Message{Role: m.Role.String(), Content: m.Text()})
	}

	var incoming string
	for _, p := range newMessage.Parts {
		incoming += p.PlainText()
	}
	if incoming != "" {
		out = append(out, llm.Message{Role: "user", Content: incoming})
	}
	return out
}

// Run issues the completion and streams cumulative events. Provider
// failures, including the pre-stream rejection an oversized prompt gets,
// arrive as events with ErrorMessage set.
func (r *LLMRunner) Run(ctx context.Context, sess *types.Session, newMessage types.Content, streaming bool) (<-chan *types.Event, error) {
	cfg := r.base
	toolExecutorURL := r.toolExecutorURL
	if sc := scope.FromContext(ctx); sc != nil {
		if sc.ModelOverride != nil {
			if sc.ModelOverride.Model != "" {
				cfg.Model = sc.ModelOverride.Model
			}
			if sc.ModelOverride.BaseURL != "" {
				cfg.BaseURL = sc.ModelOverride.BaseURL
			}
		}
		if sc.ToolExecutorURL != "" {
			toolExecutorURL = sc.ToolExecutorURL
		}
	}

	messages := r.buildMessages(sess, newMessage, toolExecutorURL)
	provider := r.newProvider(&cfg)
	invocationID := types.NewInvocationID()

	ch := make(chan *types.Event, 16)
	go func() {
		defer close(ch)

		if !streaming {
			resp, err := provider.Complete(ctx, messages)
			if err != nil {
				r.emit(ctx, ch, errorEvent(invocationID, err))
				return
			}
			r.emit(ctx, ch, cumulativeEvent(invocationID, "", resp.Content))
			return
		}

		deltas, err := provider.Stream(ctx, messages)
		if err != nil {
			r.emit(ctx, ch, errorEvent(invocationID, err))
			return
		}

		var thinking, content string
		for d := range deltas {
			thinking += d.Thinking
			content += d.Content
			if !r.emit(ctx, ch, cumulativeEvent(invocationID, thinking, content)) {
				return
			}
		}
	}()

	return ch, nil
}

// emit sends an event unless the request is gone. Reports false on
// cancellation so the producer stops promptly.
func (r *LLMRunner) emit(ctx context.Context, ch chan<- *types.Event, ev *types.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func cumulativeEvent(invocationID, thinking, content string) *types.Event {
	var parts []types.Part
	if thinking != "" {
		parts = append(parts, types.Part{Text: thinking, Thought: true})
	}
	if content != "" {
		parts = append(parts, types.Part{Text: content})
	}
	return &types.Event{
		ID:           types.NewEventID(),
		InvocationID: invocationID,
		Author:       "assistant",
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		Content:      types.Content{Role: "model", Parts: parts},
	}
}

func errorEvent(invocationID string, err error) *types.Event {
	return &types.Event{
		ID:           types.NewEventID(),
		InvocationID: invocationID,
		Author:       "assistant",
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		ErrorMessage: err.Error(),
	}
}
