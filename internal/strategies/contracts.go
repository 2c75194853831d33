// Package strategies holds the context-strategy contracts the gateway hooks
// into (associative memory, stuck detection, priority ranking) together
// with in-process default implementations. The gateway depends only on the
// interfaces; deployments can wire richer services.
package strategies

import (
	"context"

	"github.com/bdrazn/adkextension/internal/types"
)

// Task outcomes accepted by RecordTaskOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

// SieveResult is the memory-retrieval answer for one query.
type SieveResult struct {
	Context       string `json:"context"`
	NodesIncluded int    `json:"nodesIncluded"`
	TokensUsed    int    `json:"tokensUsed"`
}

// Node is one stored memory entry.
type Node struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Source      string   `json:"source,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   float64  `json:"createdAt"`
	AccessCount int      `json:"accessCount"`
}

// Associative is the external memory service.
type Associative interface {
	// Sieve retrieves memory relevant to the query, packed under tokenBudget.
	Sieve(ctx context.Context, query string, tokenBudget int) (*SieveResult, error)

	// Ingest stores new content and returns the created node.
	Ingest(ctx context.Context, content, category, subcategory, source string, tags []string) (*Node, error)

	// RecordTaskOutcome notes whether the surrounding task succeeded.
	RecordTaskOutcome(ctx context.Context, outcome string) error
}

// Detection is the stuck detector's verdict over recent messages.
type Detection struct {
	IsStuck         bool     `json:"isStuck"`
	Type            string   `json:"type,omitempty"`
	Confidence      float64  `json:"confidence"`
	Evidence        []string `json:"evidence,omitempty"`
	SuggestedAction string   `json:"suggestedAction,omitempty"`
}

// StuckDetector inspects a conversation for unproductive loops.
type StuckDetector interface {
	DetectStuck(ctx context.Context, messages []types.Message) (*Detection, error)

	// GenerateRecoveryMessage produces content to steer the conversation out
	// of the detected loop.
	GenerateRecoveryMessage(ctx context.Context, detection *Detection) (types.Content, error)
}

// Scored pairs a message with its priority score and the reasons behind it.
type Scored struct {
	Score   float64       `json:"score"`
	Reasons []string      `json:"reasons,omitempty"`
	Message types.Message `json:"message"`
}
