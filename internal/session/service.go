// Package session stores per-session event histories and layers the context
// management strategies over them: compaction first (summarize old windows),
// trimming second (per-request token-budget eviction).
package session

import (
	"context"
	"errors"

	"github.com/bdrazn/adkextension/internal/types"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// Service is the session CRUD surface, keyed by (appName, userId, sessionId).
type Service interface {
	Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*types.Session, error)
	Get(ctx context.Context, appName, userID, sessionID string) (*types.Session, error)
	List(ctx context.Context, appName, userID string) ([]*types.Session, error)
	Delete(ctx context.Context, appName, userID, sessionID string) error
	AppendEvent(ctx context.Context, appName, userID, sessionID string, event *types.Event) error
}

// EventReplacer is the narrow mutable hatch: a store that can atomically
// swap a session's event list. Decorators probe for it with a type
// assertion; against a store without it they stay pure and only hand out
// modified copies.
type EventReplacer interface {
	ReplaceEvents(ctx context.Context, key types.SessionKey, events []*types.Event) error
}
