package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdrazn/adkextension/internal/adapter"
	"github.com/bdrazn/adkextension/internal/strategies"
	"github.com/bdrazn/adkextension/internal/types"
)

// stuckGlue joins the recovery note to the user's own text. The framing is
// visible to the model.
const stuckGlue = "\n\n[User message]\n"

// sieveTokenBudget caps how much retrieved memory is prepended per turn.
const sieveTokenBudget = 1024

// stuckConfidenceThreshold gates recovery injection; low-confidence
// detections are ignored.
const stuckConfidenceThreshold = 0.5

// postHookTimeout bounds the async ingest after a turn.
const postHookTimeout = 30 * time.Second

// Ingest truncation: the exchange summary keeps the head of each side.
const (
	ingestUserChars  = 200
	ingestReplyChars = 500
)

// preHook enriches the incoming message before the turn runs: a stuck
// conversation gets a recovery note prepended, and relevant memory is
// sieved in. Hook failures never block the turn.
func (s *Server) preHook(ctx context.Context, sess *types.Session, newMessage types.Content) types.Content {
	if s.tools == nil {
		return newMessage
	}

	var prefix string

	if s.tools.Stuck != nil {
		messages, _ := adapter.ToMessages(sess.Events)
		det, err := s.tools.Stuck.DetectStuck(ctx, messages)
		switch {
		case err != nil:
			slog.Warn("stuck detection failed", "error", err)
		case det.IsStuck && det.Confidence >= stuckConfidenceThreshold:
			recovery, err := s.tools.Stuck.GenerateRecoveryMessage(ctx, det)
			if err != nil {
				slog.Warn("recovery message generation failed", "error", err)
				break
			}
			prefix += textOf(recovery) + stuckGlue
			slog.Info("stuck recovery injected", "type", det.Type, "confidence", det.Confidence)
		}
	}

	if s.tools.Memory != nil {
		res, err := s.tools.Memory.Sieve(ctx, textOf(newMessage), sieveTokenBudget)
		if err != nil {
			slog.Warn("memory sieve failed", "error", err)
		} else if res.Context != "" {
			prefix = "[Relevant memory]\n" + res.Context + "\n\n" + prefix
		}
	}

	if prefix == "" {
		return newMessage
	}

	enriched := newMessage
	enriched.Parts = append([]types.Part{{Text: prefix}}, newMessage.Parts...)
	return enriched
}

// postHook records the finished exchange in associative memory and tallies
// the task outcome. Runs detached from the request.
func (s *Server) postHook(app, userText, reply string, success bool) {
	if s.tools == nil || s.tools.Memory == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), postHookTimeout)
	defer cancel()

	summary := truncate(userText, ingestUserChars) + "\n---\n" + truncate(reply, ingestReplyChars)
	if _, err := s.tools.Memory.Ingest(ctx, summary, "conversation", app, "run_sse", []string{"exchange"}); err != nil {
		slog.Warn("exchange ingest failed", "error", err)
	}

	outcome := strategies.OutcomeSuccess
	if !success {
		outcome = strategies.OutcomeFailure
	}
	if err := s.tools.Memory.RecordTaskOutcome(ctx, outcome); err != nil {
		slog.Warn("task outcome record failed", "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
