package session

import (
	"context"

	"github.com/bdrazn/adkextension/internal/scope"
	"github.com/bdrazn/adkextension/internal/tokens"
	"github.com/bdrazn/adkextension/internal/trim"
	"github.com/bdrazn/adkextension/internal/types"
)

// minEventsToTrim is the history length below which trimming never runs.
const minEventsToTrim = 4

// budgetFloor is the minimum effective budget regardless of configuration or
// retry shrinking.
const budgetFloor = 1000

// TrimConfig holds the trimming decorator's budget parameters.
type TrimConfig struct {
	// BaseBudget is the default token budget when no per-request override
	// is present.
	BaseBudget int
	// BufferTokens reserves headroom for the system prompt, tool schemas,
	// attachments, and the incoming message.
	BufferTokens int
}

// Trimming wraps a session service and evicts events on reads so the
// estimated token count fits the effective budget. Rankings are
// query-dependent, so trimming is a per-request view and never writes back:
// the authoritative history stays intact for later, differently-phrased
// turns.
type Trimming struct {
	inner     Service
	ranker    trim.Ranker // nil disables priority selection
	estimator tokens.Estimator
	cfg       TrimConfig
}

// NewTrimming wraps inner. ranker may be nil, in which case only the FIFO
// discipline is used.
func NewTrimming(inner Service, ranker trim.Ranker, estimator tokens.Estimator, cfg TrimConfig) *Trimming {
	return &Trimming{inner: inner, ranker: ranker, estimator: estimator, cfg: cfg}
}

var _ Service = (*Trimming)(nil)

func (t *Trimming) Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*types.Session, error) {
	return t.inner.Create(ctx, appName, userID, sessionID, state)
}

func (t *Trimming) Get(ctx context.Context, appName, userID, sessionID string) (*types.Session, error) {
	sess, err := t.inner.Get(ctx, appName, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.Events) < minEventsToTrim {
		return sess, nil
	}

	budget := t.effectiveBudget(ctx)
	if tokens.Events(t.estimator, sess.Events) <= budget {
		return sess, nil
	}

	trimmed := t.selectEvents(sess.Events, budget)
	if len(trimmed) >= len(sess.Events) {
		return sess, nil
	}
	return sess.WithEvents(trimmed), nil
}

func (t *Trimming) List(ctx context.Context, appName, userID string) ([]*types.Session, error) {
	return t.inner.List(ctx, appName, userID)
}

func (t *Trimming) Delete(ctx context.Context, appName, userID, sessionID string) error {
	return t.inner.Delete(ctx, appName, userID, sessionID)
}

func (t *Trimming) AppendEvent(ctx context.Context, appName, userID, sessionID string, event *types.Event) error {
	return t.inner.AppendEvent(ctx, appName, userID, sessionID, event)
}

// effectiveBudget resolves max(1000, (base − buffer) × retryFactor) from the
// configuration and the ambient request scope.
func (t *Trimming) effectiveBudget(ctx context.Context) int {
	base := t.cfg.BaseBudget
	factor := 1.0
	if sc := scope.FromContext(ctx); sc != nil {
		if sc.ContextLimit > 0 {
			base = sc.ContextLimit
		}
		if sc.RetryBudgetFactor > 0 {
			factor = sc.RetryBudgetFactor
		}
	}

	budget := int(float64(base-t.cfg.BufferTokens) * factor)
	if budget < budgetFloor {
		budget = budgetFloor
	}
	return budget
}

// selectEvents tries priority selection first and falls back to FIFO
// whenever the ranker is missing or its result is not strictly smaller.
func (t *Trimming) selectEvents(events []*types.Event, budget int) []*types.Event {
	if t.ranker != nil {
		selected := trim.Priority(t.ranker, t.estimator, events, budget)
		if len(selected) > 0 && len(selected) < len(events) {
			return selected
		}
	}
	return trim.FIFO(t.estimator, events, budget)
}
