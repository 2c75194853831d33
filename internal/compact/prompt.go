package compact

import (
	"strings"

	"github.com/bdrazn/adkextension/internal/types"
)

const summarySystemPrompt = "You summarize conversations precisely. Keep key facts, decisions, open questions, and user preferences. Be concise."

const summaryPromptTemplate = `The following is a conversation history between a user and an assistant. Summarize it so the conversation can continue from the summary alone.

{conversation_history}`

// buildSummaryPrompt renders the window as "<author>: <text>" lines and
// substitutes them into the summarization template. Events with no readable
// text are skipped.
func buildSummaryPrompt(events []*types.Event) string {
	var lines []string
	for _, ev := range events {
		text := ev.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, ev.Author+": "+text)
	}
	history := strings.Join(lines, "\n")
	return strings.Replace(summaryPromptTemplate, "{conversation_history}", history, 1)
}
