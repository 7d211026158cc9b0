package reply

import (
	"fmt"
	"strings"

	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// DefaultHistoryWindow bounds how many recent turns go into the prompt
const DefaultHistoryWindow = 5

const promptPreamble = `You are a support agent answering a customer on behalf of our service.
Rules:
- Answer only from the knowledge entries below. Do not invent facts.
- If the knowledge does not cover the question, say so honestly and suggest contacting support.
- Stay consistent with the conversation history.
- Keep the tone polite and concise.`

// AssemblePrompt builds the full generation prompt from the retrieved
// knowledge, the recent conversation turns, and the current query. Pure
// string building, no model call.
func AssemblePrompt(query string, candidates []*retrieval.Candidate, history []*model.Message, historyWindow int) string {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	if len(candidates) > 0 {
		b.WriteString("## Knowledge\n")
		for i, c := range candidates {
			fmt.Fprintf(&b, "%d. %s (category: %s", i+1, c.Item.Title, c.Item.Category)
			if len(c.Item.Tags) > 0 {
				fmt.Fprintf(&b, ", tags: %s", strings.Join(c.Item.Tags, ", "))
			}
			fmt.Fprintf(&b, ", relevance: %.2f)\n", c.Similarity)
			b.WriteString(indent(c.Item.Content))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("## Knowledge\nNo relevant knowledge entries were found.\n\n")
	}

	if recent := lastN(history, historyWindow); len(recent) > 0 {
		b.WriteString("## Conversation so far\n")
		for _, msg := range recent {
			fmt.Fprintf(&b, "[%s] %s: %s\n",
				msg.CreatedAt.Format("2006-01-02 15:04"),
				msg.Direction.Role(),
				msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Customer question\n")
	b.WriteString(query)
	b.WriteString("\n")

	return b.String()
}

func lastN(history []*model.Message, n int) []*model.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "   " + line
	}
	return strings.Join(lines, "\n")
}
