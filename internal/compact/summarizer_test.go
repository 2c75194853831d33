package compact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bdrazn/adkextension/internal/scope"
	"github.com/bdrazn/adkextension/internal/types"
	"github.com/bdrazn/adkextension/pkg/llm"
)

// fakeProvider records the request it received and returns a canned reply.
type fakeProvider struct {
	cfg      *llm.Config
	reply    string
	err      error
	messages []llm.Message
}

func (f *fakeProvider) Complete(_ context.Context, messages []llm.Message) (*llm.Response, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.Delta, error) {
	return nil, errors.New("not used")
}

func summarizerWith(fake *fakeProvider) *LLMSummarizer {
	return NewLLMSummarizer(llm.Config{BaseURL: "http://llm", Model: "base-model"}, func(cfg *llm.Config) llm.Provider {
		fake.cfg = cfg
		return fake
	})
}

func conversation() []*types.Event {
	return []*types.Event{
		{Author: "user", Timestamp: 10, Content: types.Content{Parts: []types.Part{{Text: "How do I fix the build?"}}}},
		{Author: "assistant", Timestamp: 11, Content: types.Content{Parts: []types.Part{{Text: "Run go vet first."}}}},
		{Author: "user", Timestamp: 12, Content: types.Content{Parts: []types.Part{{Text: "  "}}}},
	}
}

func TestSummarizePromptShape(t *testing.T) {
	fake := &fakeProvider{reply: "User asked about the build; assistant suggested go vet."}
	s := summarizerWith(fake)

	got, err := s.Summarize(context.Background(), conversation())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a summary")
	}

	if len(fake.messages) != 2 || fake.messages[0].Role != "system" {
		t.Fatalf("unexpected prompt shape: %+v", fake.messages)
	}
	prompt := fake.messages[1].Content
	if !strings.Contains(prompt, "user: How do I fix the build?") {
		t.Errorf("prompt missing user line: %q", prompt)
	}
	if !strings.Contains(prompt, "assistant: Run go vet first.") {
		t.Errorf("prompt missing assistant line: %q", prompt)
	}
	// The whitespace-only event contributes no line.
	if strings.Count(prompt, "user:") != 1 {
		t.Errorf("whitespace event leaked into prompt: %q", prompt)
	}

	if got.StartTimestamp != 10 || got.EndTimestamp != 12 {
		t.Errorf("timestamps = (%v, %v), want (10, 12)", got.StartTimestamp, got.EndTimestamp)
	}
	if got.Content.Role != "user" {
		t.Errorf("summary role = %q, want user", got.Content.Role)
	}
}

func TestSummarizeTransportFailureReturnsError(t *testing.T) {
	fake := &fakeProvider{err: errors.New("connection refused")}
	s := summarizerWith(fake)

	got, err := s.Summarize(context.Background(), conversation())
	if err == nil || got != nil {
		t.Fatalf("expected transport error, got (%v, %v)", got, err)
	}
}

func TestSummarizeEmptyContentDeclines(t *testing.T) {
	fake := &fakeProvider{reply: ""}
	s := summarizerWith(fake)

	got, err := s.Summarize(context.Background(), conversation())
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) decline, got (%v, %v)", got, err)
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	s := summarizerWith(&fakeProvider{reply: "x"})
	got, err := s.Summarize(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestSummarizeHonorsModelOverride(t *testing.T) {
	fake := &fakeProvider{reply: "summary"}
	s := summarizerWith(fake)

	ctx := scope.WithScope(context.Background(), &scope.Scope{
		ModelOverride: &scope.ModelOverride{Model: "override-model", BaseURL: "http://other"},
	})
	if _, err := s.Summarize(ctx, conversation()); err != nil {
		t.Fatal(err)
	}
	if fake.cfg.Model != "override-model" || fake.cfg.BaseURL != "http://other" {
		t.Errorf("override not applied: %+v", fake.cfg)
	}

	// A scope-free call goes back to the base configuration.
	if _, err := s.Summarize(context.Background(), conversation()); err != nil {
		t.Fatal(err)
	}
	if fake.cfg.Model != "base-model" {
		t.Errorf("base model not restored: %+v", fake.cfg)
	}
}
