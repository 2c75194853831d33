package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseStream writes server-sent events as bare "data: <json>" frames; no id
// or event fields, matching what the extension's EventSource parser expects.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal SSE frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Frame payloads. Exactly one of content/thinking/error appears per frame.

type ssePart struct {
	Text string `json:"text"`
}

type sseContent struct {
	Parts []ssePart `json:"parts"`
}

type sseThinking struct {
	Text     string         `json:"text"`
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func contentFrame(delta string) map[string]any {
	return map[string]any{"content": sseContent{Parts: []ssePart{{Text: delta}}}}
}

func thinkingFrame(delta, id string) map[string]any {
	return map[string]any{"thinking": sseThinking{Text: delta, ID: id}}
}

func thinkingCloseFrame(id string) map[string]any {
	return map[string]any{"thinking": sseThinking{
		Text:     "",
		ID:       id,
		Metadata: map[string]any{"vscodeReasoningDone": true},
	}}
}

func errorFrame(msg string) map[string]any {
	return map[string]any{"error": msg}
}
