// Package gateway exposes the HTTP surface of the agent server: session
// CRUD, the /run_sse streaming loop with token-overflow recovery, the
// ollama passthrough, and the context-tools dispatch.
package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/bdrazn/adkextension/internal/config"
	"github.com/bdrazn/adkextension/internal/runner"
	"github.com/bdrazn/adkextension/internal/session"
	"github.com/bdrazn/adkextension/internal/strategies"
	"github.com/bdrazn/adkextension/internal/types"
)

// maxBodyBytes caps request bodies at 50 MB; inline attachments ride inside
// message parts.
const maxBodyBytes = 50 << 20

// appName is the single agent application this gateway serves.
const appName = "adk_chat"

// Server routes the gateway's HTTP endpoints.
type Server struct {
	cfg      *config.Config
	sessions session.Service
	runner   runner.Runner
	tools    *strategies.Set // nil when context strategies are disabled
	sem      *semaphore.Weighted
	mux      *http.ServeMux
}

// NewServer wires the decorated session service, the runner, and the
// optional strategy set into an http.Handler.
func NewServer(cfg *config.Config, sessions session.Service, run runner.Runner, tools *strategies.Set) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		runner:   run,
		tools:    tools,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /list-apps", s.handleListApps)
	s.mux.HandleFunc("POST /apps/{appName}/users/{userId}/sessions/{sessionId}", s.handleCreateSession)
	s.mux.HandleFunc("GET /apps/{appName}/users/{userId}/sessions/{sessionId}", s.handleGetSession)
	s.mux.HandleFunc("GET /apps/{appName}/users/{userId}/sessions", s.handleListSessions)
	s.mux.HandleFunc("DELETE /apps/{appName}/users/{userId}/sessions/{sessionId}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /run_sse", s.handleRunSSE)
	s.mux.HandleFunc("POST /run_ollama_sse", s.handleRunOllamaSSE)
	s.mux.HandleFunc("POST /context-tools", s.handleContextTools)
	return s
}

// ServeHTTP applies CORS and the body cap, then delegates to the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []string{appName})
}

// createSessionRequest is the optional JSON body for session creation.
type createSessionRequest struct {
	State map[string]any `json:"state,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// An empty body is fine; only a malformed one is rejected.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, err := s.sessions.Create(r.Context(),
		r.PathValue("appName"), r.PathValue("userId"), r.PathValue("sessionId"), req.State)
	if err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "session already exists")
			return
		}
		slog.Error("create session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(),
		r.PathValue("appName"), r.PathValue("userId"), r.PathValue("sessionId"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("get session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context(), r.PathValue("appName"), r.PathValue("userId"))
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Delete(r.Context(),
		r.PathValue("appName"), r.PathValue("userId"), r.PathValue("sessionId"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("delete session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// contextToolRequest is the body for POST /context-tools.
type contextToolRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

func (s *Server) handleContextTools(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeError(w, http.StatusNotImplemented, "context strategies are not enabled on this deployment")
		return
	}

	var req contextToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "tool is required")
		return
	}

	result, err := s.tools.Dispatch(r.Context(), req.Tool, req.Args)
	if err != nil {
		var unknown *strategies.ErrUnknownTool
		if errors.As(err, &unknown) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("context tool failed", "tool", req.Tool, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
