// Package qualify asks the model whether a lead meets the user's
// qualification rule, based only on the last two messages of the thread.
package qualify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/models"
)

const systemPrompt = `You qualify sales leads. Given a qualification rule and the two most
recent messages of a conversation, answer with a single word: yes or no.`

// Qualifier classifies leads. A failed or unclear answer is always "no".
type Qualifier struct {
	chat  llm.Chatter
	model string
}

// New returns a Qualifier using chat for model calls.
func New(chat llm.Chatter, model string) *Qualifier {
	return &Qualifier{chat: chat, model: model}
}

// IsQualified reports whether lastTwo satisfies criteria.
func (q *Qualifier) IsQualified(ctx context.Context, criteria string, lastTwo []string) bool {
	if q.chat == nil || strings.TrimSpace(criteria) == "" || len(lastTwo) == 0 {
		return false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Qualification rule: %s\n\nMessages:\n", criteria)
	for i, m := range lastTwo {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}
	b.WriteString("\nIs this lead qualified? Answer yes or no.")

	resp, err := q.chat.Chat(ctx, llm.Request{
		Model: q.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		log.Printf("qualify: %v", err)
		return false
	}
	return IsYes(resp.Content)
}

// IsYes reports whether answer is the single word yes, ignoring case,
// surrounding space and trailing punctuation.
func IsYes(answer string) bool {
	a := strings.TrimSpace(answer)
	a = strings.TrimRight(a, ".!")
	return strings.EqualFold(a, "yes")
}

// LastTwo returns the raw text of the final two messages of conv.
func LastTwo(conv []models.ConversationMessage) []string {
	if len(conv) > 2 {
		conv = conv[len(conv)-2:]
	}
	out := make([]string, len(conv))
	for i, m := range conv {
		out[i] = m.Message
	}
	return out
}

// FormatTranscript renders conv one turn per line for alerts.
func FormatTranscript(conv []models.ConversationMessage) string {
	var b strings.Builder
	for _, m := range conv {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}
