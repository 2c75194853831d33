package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bdrazn/adkextension/internal/types"
)

func ollamaUpstream(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(body, &req)
		if req["stream"] != true {
			t.Errorf("stream not forced: %v", req["stream"])
		}
		if _, leaked := req["baseUrl"]; leaked {
			t.Error("baseUrl leaked upstream")
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}))
}

func TestRunOllamaSSESplitsChannels(t *testing.T) {
	upstream := ollamaUpstream(t, []string{
		`{"message":{"thinking":"pondering"},"done":false}`,
		`{"message":{"thinking":" more"},"done":false}`,
		`{"message":{"content":"Hello"},"done":false}`,
		`{"message":{"content":" there"},"done":false}`,
		`{"done":true}`,
	})
	defer upstream.Close()

	srv, _ := newTestServer(t, &fakeRunner{script: func(int) []*types.Event { return nil }})

	body := fmt.Sprintf(`{"model":"llama3","baseUrl":%q,"messages":[{"role":"user","content":"hi"}]}`, upstream.URL)
	req := httptest.NewRequest(http.MethodPost, "/run_ollama_sse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	all := frames(t, rec.Body.String())
	var thinking, content []string
	sawClose := false
	for _, f := range all {
		if th, ok := f["thinking"].(map[string]any); ok {
			if meta, ok := th["metadata"].(map[string]any); ok && meta["vscodeReasoningDone"] == true {
				sawClose = true
				continue
			}
			thinking = append(thinking, th["text"].(string))
		}
		if c, ok := f["content"].(map[string]any); ok {
			parts := c["parts"].([]any)
			content = append(content, parts[0].(map[string]any)["text"].(string))
		}
	}

	if strings.Join(thinking, "") != "pondering more" {
		t.Errorf("thinking = %v", thinking)
	}
	if !sawClose {
		t.Error("missing reasoning close frame")
	}
	if strings.Join(content, "") != "Hello there" {
		t.Errorf("content = %v", content)
	}
}

func TestRunOllamaSSEUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model exploded"))
	}))
	defer upstream.Close()

	srv, _ := newTestServer(t, &fakeRunner{script: func(int) []*types.Event { return nil }})

	body := fmt.Sprintf(`{"model":"llama3","baseUrl":%q,"messages":[]}`, upstream.URL)
	req := httptest.NewRequest(http.MethodPost, "/run_ollama_sse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestRunOllamaSSEInlineError(t *testing.T) {
	upstream := ollamaUpstream(t, []string{
		`{"message":{"content":"partial"},"done":false}`,
		`{"error":"model crashed mid-stream"}`,
	})
	defer upstream.Close()

	srv, _ := newTestServer(t, &fakeRunner{script: func(int) []*types.Event { return nil }})

	body := fmt.Sprintf(`{"model":"llama3","baseUrl":%q,"messages":[]}`, upstream.URL)
	req := httptest.NewRequest(http.MethodPost, "/run_ollama_sse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	all := frames(t, rec.Body.String())
	errs := errorFrames(all)
	if len(errs) != 1 || !strings.Contains(errs[0], "crashed") {
		t.Fatalf("errors = %v", errs)
	}
}

func TestRunOllamaSSEBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{script: func(int) []*types.Event { return nil }})
	req := httptest.NewRequest(http.MethodPost, "/run_ollama_sse", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
