package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bdrazn/adkextension/internal/compact"
	"github.com/bdrazn/adkextension/internal/types"
)

// Compacting wraps a session service and runs sliding-window compaction on
// reads, and after appends when the inner store exposes the mutable hatch.
// Compaction failures are advisory: the wrapped session is returned
// unchanged and the budget layer remains the next line of defense.
type Compacting struct {
	inner     Service
	compactor *compact.Compactor
}

// NewCompacting wraps inner with the given compactor.
func NewCompacting(inner Service, compactor *compact.Compactor) *Compacting {
	return &Compacting{inner: inner, compactor: compactor}
}

var _ Service = (*Compacting)(nil)

func (c *Compacting) Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*types.Session, error) {
	return c.inner.Create(ctx, appName, userID, sessionID, state)
}

func (c *Compacting) Get(ctx context.Context, appName, userID, sessionID string) (*types.Session, error) {
	sess, err := c.inner.Get(ctx, appName, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.Events) == 0 {
		return sess, nil
	}

	compacted, err := c.compactor.Run(ctx, sess.Events)
	if err != nil {
		if !errors.Is(err, compact.ErrNoWindow) && !errors.Is(err, compact.ErrEmptySummary) {
			slog.Warn("compaction failed, returning session unchanged",
				"session_id", sessionID, "error", err)
		}
		return sess, nil
	}

	c.writeBack(ctx, sess.Key(), compacted)
	return sess.WithEvents(compacted), nil
}

func (c *Compacting) List(ctx context.Context, appName, userID string) ([]*types.Session, error) {
	return c.inner.List(ctx, appName, userID)
}

func (c *Compacting) Delete(ctx context.Context, appName, userID, sessionID string) error {
	return c.inner.Delete(ctx, appName, userID, sessionID)
}

// AppendEvent forwards to the inner store, then compacts in place when the
// store is mutable and the history has crossed the interval again. Without
// the hatch appends accumulate until the next Get compacts the read view.
func (c *Compacting) AppendEvent(ctx context.Context, appName, userID, sessionID string, event *types.Event) error {
	if err := c.inner.AppendEvent(ctx, appName, userID, sessionID, event); err != nil {
		return err
	}

	replacer, ok := c.inner.(EventReplacer)
	if !ok {
		return nil
	}

	sess, err := c.inner.Get(ctx, appName, userID, sessionID)
	if err != nil {
		slog.Warn("post-append compaction read failed", "session_id", sessionID, "error", err)
		return nil
	}
	if len(sess.Events) < c.compactor.Interval {
		return nil
	}

	compacted, err := c.compactor.Run(ctx, sess.Events)
	if err != nil {
		if !errors.Is(err, compact.ErrNoWindow) && !errors.Is(err, compact.ErrEmptySummary) {
			slog.Warn("post-append compaction failed", "session_id", sessionID, "error", err)
		}
		return nil
	}

	if err := replacer.ReplaceEvents(ctx, sess.Key(), compacted); err != nil {
		slog.Warn("post-append write-back failed", "session_id", sessionID, "error", err)
	}
	return nil
}

func (c *Compacting) writeBack(ctx context.Context, key types.SessionKey, events []*types.Event) {
	replacer, ok := c.inner.(EventReplacer)
	if !ok {
		return
	}
	if err := replacer.ReplaceEvents(ctx, key, events); err != nil {
		slog.Warn("compaction write-back failed", "session_id", key.SessionID, "error", err)
	}
}
