package strategies

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/bdrazn/adkextension/internal/types"
)

// ErrUnknownTool is returned for tool names the dispatcher does not know,
// or whose backing service is not wired on this deployment.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown context tool %q", e.Name)
}

// Set bundles the wired strategy services. Nil members are simply not
// offered through the dispatcher or the gateway hooks.
type Set struct {
	Memory Associative
	Stuck  StuckDetector
	Ranker *HeuristicRanker
}

// Dispatch routes a named context-tool invocation with loosely-typed JSON
// arguments to the matching service. Argument shapes follow the extension's
// wire format, so fields are pulled individually rather than bound to
// structs.
func (s *Set) Dispatch(ctx context.Context, name string, args json.RawMessage) (any, error) {
	body := string(args)
	switch name {
	case "sieve":
		if s.Memory == nil {
			return nil, &ErrUnknownTool{Name: name}
		}
		query := gjson.Get(body, "query").String()
		budget := int(gjson.Get(body, "tokenBudget").Int())
		if budget <= 0 {
			budget = 1024
		}
		return s.Memory.Sieve(ctx, query, budget)

	case "ingest":
		if s.Memory == nil {
			return nil, &ErrUnknownTool{Name: name}
		}
		var tags []string
		for _, tag := range gjson.Get(body, "tags").Array() {
			tags = append(tags, tag.String())
		}
		return s.Memory.Ingest(ctx,
			gjson.Get(body, "content").String(),
			gjson.Get(body, "category").String(),
			gjson.Get(body, "subcategory").String(),
			gjson.Get(body, "source").String(),
			tags)

	case "record_task_outcome":
		if s.Memory == nil {
			return nil, &ErrUnknownTool{Name: name}
		}
		if err := s.Memory.RecordTaskOutcome(ctx, gjson.Get(body, "outcome").String()); err != nil {
			return nil, err
		}
		return map[string]bool{"recorded": true}, nil

	case "detect_stuck":
		if s.Stuck == nil {
			return nil, &ErrUnknownTool{Name: name}
		}
		messages := messagesFromArgs(body)
		return s.Stuck.DetectStuck(ctx, messages)

	default:
		return nil, &ErrUnknownTool{Name: name}
	}
}

// messagesFromArgs reads a loose messages array: role as string or number,
// content as plain text or typed chunks.
func messagesFromArgs(body string) []types.Message {
	var out []types.Message
	for i, raw := range gjson.Get(body, "messages").Array() {
		m := types.Message{Ordinal: i}
		switch raw.Get("role").String() {
		case "user", "1":
			m.Role = types.RoleUser
		case "system", "0":
			m.Role = types.RoleSystem
		default:
			m.Role = types.RoleAssistant
		}

		if content := raw.Get("content"); content.IsArray() {
			for _, c := range content.Array() {
				m.Content = append(m.Content, types.MessageContent{
					Type:  c.Get("type").String(),
					Value: c.Get("value").String(),
				})
			}
		} else {
			m.Content = []types.MessageContent{{Type: "text", Value: content.String()}}
		}
		out = append(out, m)
	}
	return out
}
