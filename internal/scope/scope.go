// Package scope carries per-request configuration through the session read
// path and the summarizer. Holding these in process globals races under
// concurrent requests, so each request gets its own immutable Scope threaded
// via context.Context.
package scope

import (
	"context"
)

// ModelOverride redirects a single request to a different model or endpoint.
type ModelOverride struct {
	Model   string `json:"model"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// Scope is the ambient per-request configuration. A zero value means "use
// configured defaults". Scopes are never mutated after WithScope; a retry
// pass installs a fresh Scope with RetryBudgetFactor set.
type Scope struct {
	ModelOverride    *ModelOverride
	ContextLimit     int
	RetryTrimPercent float64
	// RetryBudgetFactor is retryTrimPercent/100 on the retry pass and 0
	// otherwise. The trimming decorator treats 0 as factor 1.
	RetryBudgetFactor float64
	ToolExecutorURL   string
}

type ctxKey struct{}

// WithScope returns a context carrying the given scope.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request scope, or nil when none is set.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(ctxKey{}).(*Scope)
	return s
}
