package session

import (
	"context"
	"sync"
	"time"

	"github.com/bdrazn/adkextension/internal/types"
)

// InMemoryService keeps sessions in a process-local map. The store is the
// single owner of its event lists: reads hand out shallow session copies
// with a copied event slice, and all mutation goes through AppendEvent or
// ReplaceEvents under the store lock.
type InMemoryService struct {
	mu       sync.RWMutex
	sessions map[types.SessionKey]*types.Session
}

// NewInMemoryService creates an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		sessions: make(map[types.SessionKey]*types.Session),
	}
}

var _ Service = (*InMemoryService)(nil)
var _ EventReplacer = (*InMemoryService)(nil)

func (s *InMemoryService) Create(_ context.Context, appName, userID, sessionID string, state map[string]any) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = types.NewSessionID()
	}
	key := types.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}
	if _, ok := s.sessions[key]; ok {
		return nil, ErrAlreadyExists
	}

	if state == nil {
		state = make(map[string]any)
	}
	sess := &types.Session{
		AppName:        appName,
		UserID:         userID,
		ID:             sessionID,
		State:          state,
		Events:         nil,
		LastUpdateTime: nowEpoch(),
	}
	s.sessions[key] = sess
	return copySession(sess), nil
}

func (s *InMemoryService) Get(_ context.Context, appName, userID, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[types.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *InMemoryService) List(_ context.Context, appName, userID string) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Session
	for key, sess := range s.sessions {
		if key.AppName == appName && key.UserID == userID {
			out = append(out, copySession(sess))
		}
	}
	return out, nil
}

func (s *InMemoryService) Delete(_ context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}
	if _, ok := s.sessions[key]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, key)
	return nil
}

func (s *InMemoryService) AppendEvent(_ context.Context, appName, userID, sessionID string, event *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[types.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}]
	if !ok {
		return ErrNotFound
	}
	if event.ID == "" {
		event.ID = types.NewEventID()
	}
	if event.Timestamp == 0 {
		event.Timestamp = nowEpoch()
	}
	sess.Events = append(sess.Events, event)
	sess.LastUpdateTime = nowEpoch()
	return nil
}

// ReplaceEvents atomically swaps the session's event list. This is the only
// write path decorators may use; the surviving events keep their order.
func (s *InMemoryService) ReplaceEvents(_ context.Context, key types.SessionKey, events []*types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return ErrNotFound
	}
	sess.Events = events
	sess.LastUpdateTime = nowEpoch()
	return nil
}

// DeleteIdle removes sessions whose last update is older than maxAge and
// returns how many were removed.
func (s *InMemoryService) DeleteIdle(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowEpoch() - maxAge.Seconds()
	removed := 0
	for key, sess := range s.sessions {
		if sess.LastUpdateTime < cutoff {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// Snapshot exposes the stored sessions for test harnesses that need to
// observe write-backs. The returned map holds the stored session pointers
// themselves, so a write through one of them reaches the store.
func (s *InMemoryService) Snapshot() map[types.SessionKey]*types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.SessionKey]*types.Session, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}
	return out
}

// copySession returns a shallow session copy with its own event slice, so a
// caller holding the copy cannot grow or reorder the stored list.
func copySession(sess *types.Session) *types.Session {
	events := make([]*types.Event, len(sess.Events))
	copy(events, sess.Events)
	return sess.WithEvents(events)
}

func nowEpoch() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
