// internal/types/models.go
package types

import (
	"encoding/json"
	"strings"
)

// Blob marks a binary payload inside a part. The gateway never inspects the
// bytes; it only needs to know the part is not text.
type Blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Part is one element of an event's content. Parts are schema-loose: exactly
// one of Text, Value, or InlineData is significant, resolved in that order.
// Thought marks reasoning output that is streamed on a separate channel.
type Part struct {
	Text       string `json:"text,omitempty"`
	Value      any    `json:"value,omitempty"`
	Thought    bool   `json:"thought,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// PlainText resolves the part to readable text: Text if set, else the
// stringified Value, else "". Binary parts resolve to "".
func (p Part) PlainText() string {
	if p.Text != "" {
		return p.Text
	}
	if p.Value != nil {
		if s, ok := p.Value.(string); ok {
			return s
		}
		b, err := json.Marshal(p.Value)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Event is a single append-only record in a session's history. Events are
// immutable once appended; compaction replaces whole event lists instead of
// mutating records in place.
type Event struct {
	ID           string          `json:"id"`
	InvocationID string          `json:"invocationId,omitempty"`
	Author       string          `json:"author"`
	Timestamp    float64         `json:"timestamp"`
	Content      Content         `json:"content"`
	Actions      json.RawMessage `json:"actions,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Text concatenates the plain text of all parts, thought parts included.
func (e *Event) Text() string {
	var b strings.Builder
	for _, p := range e.Content.Parts {
		b.WriteString(p.PlainText())
	}
	return b.String()
}

// AuthoredBy reports whether the event's author matches the given tag,
// case-insensitively.
func (e *Event) AuthoredBy(author string) bool {
	return strings.EqualFold(e.Author, author)
}

// SessionKey identifies a session by its immutable identity triple.
type SessionKey struct {
	AppName   string
	UserID    string
	SessionID string
}

// Session is the event list and metadata for one (app, user, session) triple.
// Events are kept in non-decreasing timestamp order; replacing the event list
// never reorders the surviving events.
type Session struct {
	AppName        string         `json:"appName"`
	UserID         string         `json:"userId"`
	ID             string         `json:"id"`
	State          map[string]any `json:"state,omitempty"`
	Events         []*Event       `json:"events"`
	LastUpdateTime float64        `json:"lastUpdateTime,omitempty"`
}

// Key returns the session's identity triple.
func (s *Session) Key() SessionKey {
	return SessionKey{AppName: s.AppName, UserID: s.UserID, SessionID: s.ID}
}

// WithEvents returns a shallow copy of the session carrying a replacement
// event list. The receiver is not modified; decorators use this to hand out
// per-request views without touching the stored history.
func (s *Session) WithEvents(events []*Event) *Session {
	out := *s
	out.Events = events
	return &out
}

// Role classifies a projected message.
type Role int

const (
	RoleSystem Role = iota
	RoleUser
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// MessageContent is one typed chunk of a projected message.
type MessageContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Message is the uniform role-tagged projection of an event used by the
// ranking and trimming layers. Ordinal records the message's position in the
// projection so a selected subset can be lifted back to the originating
// events.
type Message struct {
	Role    Role             `json:"role"`
	Content []MessageContent `json:"content"`
	Ordinal int              `json:"-"`
}

// Text concatenates the message's content values.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		b.WriteString(c.Value)
	}
	return b.String()
}
