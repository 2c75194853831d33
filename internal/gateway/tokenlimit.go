package gateway

import (
	"regexp"
)

// tokenLimitRe matches the error phrasings the common backends use when a
// prompt overflows the context window. Matching is deliberately loose:
// a false positive costs one harmless retry with a tighter budget, while a
// false negative surfaces a raw error to the client.
var tokenLimitRe = regexp.MustCompile(`(?i)(` +
	`context[ _]length` +
	`|prompt too long` +
	`|token limit` +
	`|max.{0,30}token` +
	`|maximum context` +
	`|exceeded` +
	`|num_ctx` +
	`|input.{0,30}length` +
	`|too many tokens` +
	`|token count` +
	`|context window` +
	`)`)

// isTokenLimitError reports whether the error message indicates context
// overflow, recoverable by shrinking the history and replaying the turn.
func isTokenLimitError(msg string) bool {
	return msg != "" && tokenLimitRe.MatchString(msg)
}
