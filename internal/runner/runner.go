// Package runner produces the event stream for one model turn. The gateway
// treats the runner as an opaque async producer; LLMRunner is the default
// implementation over an OpenAI-compatible provider.
package runner

import (
	"context"

	"github.com/bdrazn/adkextension/internal/types"
)

// Runner turns a session view plus one new message into a lazy stream of
// events. The channel is closed when the turn ends. Transport and model
// failures are reported in-band as events carrying ErrorMessage, never as a
// Run error, so the gateway can apply its own recovery policy.
//
// Events carry cumulative text: each event's content is the full text
// produced so far, and the gateway derives deltas by prefix comparison.
type Runner interface {
	Run(ctx context.Context, sess *types.Session, newMessage types.Content, streaming bool) (<-chan *types.Event, error)
}
