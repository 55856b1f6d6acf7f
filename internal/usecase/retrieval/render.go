package retrieval

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

// Fixed user-facing messages.
const (
	MsgFallback = "I'm not sure about that. Can you rephrase or ask differently?"
	MsgError    = "I'm having trouble accessing my memory right now. Please try again."
)

var markdownMarkers = strings.NewReplacer("**", "", "*", "", "__", "")

// factBlockMessage names the category the answer was required to contain.
func factBlockMessage(cat FactCategory) string {
	return fmt.Sprintf("I couldn't find the exact %s in my data. Please contact the school office for official details.", cat.Display)
}

// disclaimer is the sentence the general fallback must use for in-domain facts it does not have.
func disclaimer(infoURL string) string {
	if infoURL == "" {
		return "I don't have that information in my data. Please contact the school office for official details."
	}
	return fmt.Sprintf("I don't have that information in my data. Please visit %s or contact the school office for official details.", infoURL)
}

func clarifyMessage(a, b string) string {
	return fmt.Sprintf("I found a couple of topics that could match. Did you mean %q or %q?", a, b)
}

// renderList formats candidates as a labeled overview, one entry per line.
func renderList(l labeler, candidates []domain.Candidate) string {
	var sb strings.Builder
	sb.WriteString("Here's what I found:\n")
	for _, c := range candidates {
		sb.WriteString("\n• ")
		sb.WriteString(l.label(c.QuestionText))
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(c.AnswerText))
	}
	return sb.String()
}

func synthesisInstruction(query string, c domain.Candidate) string {
	return fmt.Sprintf(`You are a helpful school assistant. Use the FACT below to answer the user's question.

USER QUESTION: %q

FACT:
Question: %q
Answer: %q

INSTRUCTIONS:
1. Answer in ONE cohesive, polite sentence or two.
2. Use only the FACT. Do not add information that is not in it.
3. Keep every number, name, date and link exactly as written.
4. If the FACT does not answer the question, say "I don't have that specific detail."`,
		query, c.QuestionText, c.AnswerText)
}

func generalInstruction(infoURL string) string {
	return fmt.Sprintf(`You are a safe assistant for a school.

If the question is about the school but the exact information is NOT in the
school's official data, you MUST reply EXACTLY:

%q

If the question is clearly about something else, you may answer normally with a brief, helpful reply.

Return ONLY the final answer text.`, disclaimer(infoURL))
}

// stripMarkdown drops bold and italic markers from generated text.
func stripMarkdown(s string) string {
	return strings.TrimSpace(markdownMarkers.Replace(s))
}
