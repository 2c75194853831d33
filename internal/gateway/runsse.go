package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bdrazn/adkextension/internal/scope"
	"github.com/bdrazn/adkextension/internal/session"
	"github.com/bdrazn/adkextension/internal/types"
)

// defaultRetryTrimPercent is the budget fraction kept on the overflow retry.
const defaultRetryTrimPercent = 12.5

// runRequest is the body for POST /run_sse.
type runRequest struct {
	AppName          string               `json:"appName"`
	UserID           string               `json:"userId"`
	SessionID        string               `json:"sessionId"`
	NewMessage       types.Content        `json:"newMessage"`
	Streaming        bool                 `json:"streaming"`
	ModelOverride    *scope.ModelOverride `json:"modelOverride,omitempty"`
	ToolExecutorURL  string               `json:"toolExecutorUrl,omitempty"`
	ContextLimit     int                  `json:"contextLimit,omitempty"`
	RetryTrimPercent float64              `json:"retryTrimPercent,omitempty"`
}

func (r *runRequest) validate() string {
	if r.AppName == "" || r.UserID == "" || r.SessionID == "" {
		return "appName, userId and sessionId are required"
	}
	if len(r.NewMessage.Parts) == 0 {
		return "newMessage must carry at least one part"
	}
	if r.ContextLimit < 0 {
		return "contextLimit must be positive"
	}
	if r.RetryTrimPercent == 0 {
		r.RetryTrimPercent = defaultRetryTrimPercent
	}
	if r.RetryTrimPercent < 1 || r.RetryTrimPercent > 100 {
		return "retryTrimPercent must be in [1,100]"
	}
	return ""
}

// handleRunSSE drives one model turn: INIT (validate, resolve session,
// pre-hook), STREAM (delta extraction), at most one RETRY on a token-limit
// error, then DONE (persist the turn, async post-hook).
func (s *Server) handleRunSSE(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		return // client went away while queued
	}
	defer s.sem.Release(1)

	baseScope := &scope.Scope{
		ModelOverride:    req.ModelOverride,
		ContextLimit:     req.ContextLimit,
		RetryTrimPercent: req.RetryTrimPercent,
		ToolExecutorURL:  req.ToolExecutorURL,
	}
	initCtx := scope.WithScope(r.Context(), baseScope)

	// Everything that can fail with a meaningful status happens before the
	// SSE stream opens.
	sess, err := s.sessions.Get(initCtx, req.AppName, req.UserID, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("run_sse session load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	newMessage := s.preHook(initCtx, sess, req.NewMessage)

	// The first runner invocation happens before the SSE stream opens so a
	// failure to start the agent is still a plain 500.
	runCtx, cancelRun := context.WithCancel(initCtx)
	firstEvents, err := s.runner.Run(runCtx, sess, newMessage, req.Streaming)
	if err != nil {
		cancelRun()
		writeError(w, http.StatusInternalServerError, "agent failed to start: "+err.Error())
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		cancelRun()
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	finalContent, finalThinking, hadError := s.streamTurn(r, stream, &req, baseScope, newMessage, firstEvents, cancelRun)

	// DONE: persist the turn and kick the post-hook unless the client is
	// already gone.
	if r.Context().Err() != nil {
		return
	}
	s.persistTurn(req.AppName, req.UserID, req.SessionID, newMessage, finalThinking, finalContent)
	go s.postHook(req.AppName, textOf(req.NewMessage), finalContent, !hadError)
}

// streamTurn runs the STREAM state, re-entering once through RETRY when the
// runner reports a token-limit error. The first attempt consumes the
// already-started producer; the retry is a second consumption of a freshly
// created one. Returns the final channel texts and whether any error frame
// was written.
func (s *Server) streamTurn(r *http.Request, stream *sseStream, req *runRequest, baseScope *scope.Scope, newMessage types.Content, firstEvents <-chan *types.Event, cancelFirst context.CancelFunc) (finalContent, finalThinking string, hadError bool) {
	retried := false

	for attempt := 0; attempt < 2; attempt++ {
		events := firstEvents
		cancelRun := cancelFirst

		if attempt > 0 {
			attemptScope := *baseScope
			attemptScope.RetryBudgetFactor = req.RetryTrimPercent / 100
			var runCtx context.Context
			runCtx, cancelRun = context.WithCancel(scope.WithScope(r.Context(), &attemptScope))

			// The tightened budget applies inside the trimming decorator on
			// this fresh read.
			sess, err := s.sessions.Get(runCtx, req.AppName, req.UserID, req.SessionID)
			if err != nil {
				stream.send(errorFrame("session reload failed: " + err.Error()))
				cancelRun()
				return finalContent, finalThinking, true
			}

			events, err = s.runner.Run(runCtx, sess, newMessage, req.Streaming)
			if err != nil {
				stream.send(errorFrame(err.Error()))
				cancelRun()
				return finalContent, finalThinking, true
			}
		}

		// Fresh delta state per attempt: a retry restarts both channels.
		content := &deltaTracker{}
		thinking := &deltaTracker{}
		thinkingID := uuid.New().String()
		thinkingOpen := false
		retryNow := false

		for ev := range events {
			if ev.ErrorMessage != "" {
				if !retried && isTokenLimitError(ev.ErrorMessage) {
					retried = true
					retryNow = true
					break
				}
				stream.send(errorFrame(ev.ErrorMessage))
				hadError = true
				continue
			}

			if d := thinking.delta(thoughtText(ev)); d != "" {
				if !thinkingOpen {
					thinkingOpen = true
				}
				stream.send(thinkingFrame(d, thinkingID))
			}

			text := answerText(ev)
			if text != "" && thinkingOpen {
				stream.send(thinkingCloseFrame(thinkingID))
				thinkingOpen = false
			}
			if d := content.delta(text); d != "" {
				stream.send(contentFrame(d))
			}
		}

		cancelRun()
		if retryNow {
			continue
		}

		if thinkingOpen {
			stream.send(thinkingCloseFrame(thinkingID))
		}
		return content.current(), thinking.current(), hadError
	}

	return finalContent, finalThinking, hadError
}

// persistTurn appends the (possibly hook-enriched) user message and the
// assistant's reply to the authoritative history. Appends go through the
// decorated service, so the compacting layer sees them.
func (s *Server) persistTurn(appName, userID, sessionID string, userMessage types.Content, thinking, content string) {
	ctx := context.Background()
	invocationID := types.NewInvocationID()

	userEvent := &types.Event{
		InvocationID: invocationID,
		Author:       "user",
		Content:      userMessage,
	}
	if userEvent.Content.Role == "" {
		userEvent.Content.Role = "user"
	}
	if err := s.sessions.AppendEvent(ctx, appName, userID, sessionID, userEvent); err != nil {
		slog.Warn("persist user event failed", "session_id", sessionID, "error", err)
		return
	}

	if thinking == "" && content == "" {
		return
	}
	var parts []types.Part
	if thinking != "" {
		parts = append(parts, types.Part{Text: thinking, Thought: true})
	}
	if content != "" {
		parts = append(parts, types.Part{Text: content})
	}
	assistantEvent := &types.Event{
		InvocationID: invocationID,
		Author:       "assistant",
		Content:      types.Content{Role: "model", Parts: parts},
	}
	if err := s.sessions.AppendEvent(ctx, appName, userID, sessionID, assistantEvent); err != nil {
		slog.Warn("persist assistant event failed", "session_id", sessionID, "error", err)
	}
}

func textOf(content types.Content) string {
	var out string
	for _, p := range content.Parts {
		out += p.PlainText()
	}
	return out
}
