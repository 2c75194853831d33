package gateway

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// defaultOllamaBaseURL is used when the request names no endpoint.
const defaultOllamaBaseURL = "http://localhost:11434"

var ollamaClient = &http.Client{Timeout: 0, Transport: &http.Transport{
	ResponseHeaderTimeout: 60 * time.Second,
}}

// handleRunOllamaSSE proxies a chat request to an Ollama-style endpoint and
// re-frames its NDJSON stream as SSE, splitting thinking and content
// channels. The body is forwarded as-is apart from the baseUrl routing field
// and the forced stream flag; chunk shapes are read loosely since Ollama
// variants disagree on them.
func (s *Server) handleRunOllamaSSE(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	baseURL := defaultOllamaBaseURL
	if v, ok := body["baseUrl"].(string); ok && v != "" {
		baseURL = v
	}
	delete(body, "baseUrl")
	body["stream"] = true

	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		strings.TrimSuffix(baseURL, "/")+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid baseUrl")
		return
	}
	upstream.Header.Set("Content-Type", "application/json")

	resp, err := ollamaClient.Do(upstream)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("upstream unreachable: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		writeError(w, http.StatusBadGateway,
			fmt.Sprintf("upstream error (status %d): %s", resp.StatusCode, string(detail)))
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	thinkingID := uuid.New().String()
	thinkingOpen := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if errMsg := gjson.GetBytes(line, "error").String(); errMsg != "" {
			stream.send(errorFrame(errMsg))
			continue
		}

		// Ollama chunks are already deltas; no prefix comparison needed.
		if thinking := gjson.GetBytes(line, "message.thinking").String(); thinking != "" {
			thinkingOpen = true
			stream.send(thinkingFrame(thinking, thinkingID))
		}
		if content := gjson.GetBytes(line, "message.content").String(); content != "" {
			if thinkingOpen {
				stream.send(thinkingCloseFrame(thinkingID))
				thinkingOpen = false
			}
			stream.send(contentFrame(content))
		}

		if gjson.GetBytes(line, "done").Bool() {
			break
		}
	}

	if thinkingOpen {
		stream.send(thinkingCloseFrame(thinkingID))
	}
}
