// Package adapter projects session events onto the uniform message shape the
// ranking layer consumes, and remembers enough to lift a selection back to
// the originating events.
package adapter

import (
	"strings"

	"github.com/bdrazn/adkextension/internal/types"
)

// BinaryPlaceholder stands in for inline binary parts in the projection.
const BinaryPlaceholder = "[binary]"

// ToMessages projects events to role-tagged messages. Events whose
// concatenated text is all whitespace are dropped. The second return value
// maps each message back to the index of its originating event, and each
// message's Ordinal records its own position in the returned slice, so
// indices[m.Ordinal] recovers the source event.
//
// Authors "user" and "" map to RoleUser; every other producer tag maps to
// RoleAssistant. RoleSystem is never produced here: system prompts enter the
// model through the runner, not the event log.
func ToMessages(events []*types.Event) ([]types.Message, []int) {
	var messages []types.Message
	var indices []int

	for i, ev := range events {
		content := projectParts(ev.Content.Parts)
		if allWhitespace(content) {
			continue
		}

		role := types.RoleAssistant
		if ev.Author == "" || ev.AuthoredBy("user") {
			role = types.RoleUser
		}

		messages = append(messages, types.Message{
			Role:    role,
			Content: content,
			Ordinal: len(messages),
		})
		indices = append(indices, i)
	}

	return messages, indices
}

func projectParts(parts []types.Part) []types.MessageContent {
	var out []types.MessageContent
	for _, p := range parts {
		text := p.PlainText()
		if text == "" {
			if p.InlineData != nil {
				out = append(out, types.MessageContent{Type: "binary", Value: BinaryPlaceholder})
			}
			continue
		}
		out = append(out, types.MessageContent{Type: "text", Value: text})
	}
	return out
}

func allWhitespace(content []types.MessageContent) bool {
	for _, c := range content {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}
