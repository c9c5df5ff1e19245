// Package reply generates the next message in a thread from the transcript
// and the user's reply template.
package reply

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zulandar/switchboard/internal/decision"
	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/models"
)

const (
	historyTurns = 20
	temperature  = 0.7
)

const persona = `You are replying to a LinkedIn direct message on behalf of a real person.
Write like a human: brief, casual, friendly, no corporate tone, no bullet
points, no sign-off, no emojis unless they used one first. Never mention that
you are an AI or that the reply was generated.`

// Request is everything needed to draft one reply.
type Request struct {
	Template     string
	Conversation []models.ConversationMessage
	LeadName     string
	MyName       string
	Model        string // empty uses the generator's default
}

// Result is the drafted reply and what it cost.
type Result struct {
	Reply      string
	TokensUsed int
	Model      string
}

// Generator drafts replies through a chat provider.
type Generator struct {
	chat  llm.Chatter
	model string
}

// New returns a Generator.
func New(chat llm.Chatter, model string) *Generator {
	return &Generator{chat: chat, model: model}
}

// Generate drafts a reply. Provider failures are returned wrapped so callers
// can still match *llm.ProviderError.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Conversation) == 0 {
		return nil, errors.New("reply: empty conversation")
	}
	model := req.Model
	if model == "" {
		model = g.model
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt(req)}}
	turns := req.Conversation
	if len(turns) > historyTurns {
		turns = turns[len(turns)-historyTurns:]
	}
	for _, m := range turns {
		role := llm.RoleAssistant
		if decision.IsOtherParty(m, req.LeadName) {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Message})
	}

	resp, err := g.chat.Chat(ctx, llm.Request{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   llm.MaxTokensFor(model),
	})
	if err != nil {
		return nil, fmt.Errorf("reply: generate: %w", err)
	}
	text := Clean(resp.Content)
	if text == "" {
		return nil, errors.New("reply: provider returned an empty reply")
	}
	return &Result{Reply: text, TokensUsed: resp.TotalTokens(), Model: model}, nil
}

// SystemPrompt assembles the persona, the transcript, the user's template
// and the identity instruction.
func SystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nFull conversation so far:\n")
	for _, m := range req.Conversation {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Message)
	}
	b.WriteString("\nInstructions:\n")
	b.WriteString(FillTemplate(req.Template, req.LeadName, LatestFrom(req.Conversation, req.LeadName)))
	fmt.Fprintf(&b, "\n\nRespond as %s. Output only the message text.", req.MyName)
	return b.String()
}

// FillTemplate substitutes {user_name} and {extracted_text}.
func FillTemplate(tmpl, leadName, latest string) string {
	r := strings.NewReplacer("{user_name}", leadName, "{extracted_text}", latest)
	return r.Replace(tmpl)
}

// LatestFrom returns the most recent message written by speaker, or "".
func LatestFrom(conv []models.ConversationMessage, speaker string) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if decision.IsOtherParty(conv[i], speaker) {
			return conv[i].Message
		}
	}
	return ""
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Clean strips reasoning blocks some models emit and quotes wrapping the
// whole reply.
func Clean(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
