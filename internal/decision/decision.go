// Package decision classifies whether the latest inbound message in a thread
// warrants a reply. Cheap keyword and turn-taking heuristics run first; the
// model is consulted only when none of them match.
package decision

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/models"
)

// Decision is the verdict for one thread. Reason is never empty.
type Decision struct {
	ShouldReply bool   `json:"should_reply"`
	Reason      string `json:"reason"`
}

// Closing phrases that end a conversation.
var disengagement = []string{
	"not interested",
	"no thanks",
	"no thank you",
	"not right now",
	"not a fit",
	"unsubscribe",
	"stop messaging",
	"remove me",
	"please stop",
	"bye",
	"talk soon",
	"take care",
	"have a good one",
	"all the best",
}

// Phrases that signal interest.
var positive = []string{
	"interested",
	"tell me more",
	"?",
	"how much",
	"pricing",
	"price",
	"demo",
	"schedule",
	"call",
	"sounds good",
	"more info",
	"send me",
	"let's chat",
}

const (
	momentumMaxWords = 20
	historyTurns     = 20
	temperature      = 0.2
)

// Engine runs the decision pipeline.
type Engine struct {
	chat  llm.Chatter
	model string
}

// New returns an Engine. chat may be nil, in which case the model fallback
// is skipped and the default disposition (reply) applies.
func New(chat llm.Chatter, model string) *Engine {
	return &Engine{chat: chat, model: model}
}

// Decide never fails; provider problems fall back to replying so a live lead
// is not silently dropped.
func (e *Engine) Decide(ctx context.Context, conv []models.ConversationMessage, otherParty string) Decision {
	if len(conv) == 0 {
		return Decision{ShouldReply: false, Reason: "Empty conversation"}
	}
	latest := conv[len(conv)-1]
	text := strings.ToLower(latest.Message)

	// A closing phrase always wins over the turn-taking rules below.
	if kw, ok := containsAny(text, disengagement); ok {
		return Decision{ShouldReply: false, Reason: fmt.Sprintf("Closing phrase %q", kw)}
	}

	if reciprocity(conv, otherParty) {
		return Decision{ShouldReply: true, Reason: "Question asked in response to our message"}
	}
	if momentum(conv, otherParty) {
		return Decision{ShouldReply: true, Reason: "Active back-and-forth"}
	}
	if kw, ok := containsAny(text, positive); ok {
		return Decision{ShouldReply: true, Reason: fmt.Sprintf("Interest signal %q", kw)}
	}
	return e.askModel(ctx, conv, otherParty)
}

// IsOtherParty reports whether m was written by otherParty. Anything else is
// treated as ours.
func IsOtherParty(m models.ConversationMessage, otherParty string) bool {
	return strings.EqualFold(strings.TrimSpace(m.Speaker), strings.TrimSpace(otherParty))
}

// reciprocity: the final turn is the other party asking a question directly
// after one of our messages.
func reciprocity(conv []models.ConversationMessage, otherParty string) bool {
	n := len(conv)
	if n < 2 {
		return false
	}
	last, prev := conv[n-1], conv[n-2]
	return IsOtherParty(last, otherParty) &&
		strings.Contains(last.Message, "?") &&
		!IsOtherParty(prev, otherParty)
}

// momentum: a short latest message in a thread where both sides have already
// spoken and the other party has sent at least two messages.
func momentum(conv []models.ConversationMessage, otherParty string) bool {
	n := len(conv)
	if len(strings.Fields(conv[n-1].Message)) >= momentumMaxWords {
		return false
	}
	var oursPrior, theirsPrior, theirsTotal int
	for i, m := range conv {
		if IsOtherParty(m, otherParty) {
			theirsTotal++
			if i < n-1 {
				theirsPrior++
			}
		} else if i < n-1 {
			oursPrior++
		}
	}
	return oursPrior >= 1 && theirsPrior >= 1 && theirsTotal >= 2
}

func containsAny(text string, list []string) (string, bool) {
	for _, kw := range list {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

const criteria = `You decide whether a LinkedIn message needs a reply from us.
Answer REPLY when the other person asks a question, shows interest, shares
information that invites a response, or the conversation is still open.
Answer SKIP when they close the conversation, decline, or only acknowledge
(e.g. "thanks", "ok", a thumbs up) with nothing left to answer.
Respond with exactly one line: "REPLY: <short reason>" or "SKIP: <short reason>".`

func (e *Engine) askModel(ctx context.Context, conv []models.ConversationMessage, otherParty string) Decision {
	if e.chat == nil {
		return Decision{ShouldReply: true, Reason: "No model configured, defaulting to reply"}
	}
	if len(conv) > historyTurns {
		conv = conv[len(conv)-historyTurns:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation with %s (most recent last):\n", otherParty)
	for _, m := range conv {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Message)
	}

	resp, err := e.chat.Chat(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: criteria},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Temperature: temperature,
		MaxTokens:   60,
	})
	if err != nil {
		log.Printf("decision: model fallback: %v", err)
		return Decision{ShouldReply: true, Reason: "Model check failed, defaulting to reply"}
	}
	return ParseVerdict(resp.Content)
}

// ParseVerdict reads "REPLY: reason" or "SKIP: reason". Anything else is
// ambiguous and defaults to reply.
func ParseVerdict(s string) Decision {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	var d Decision
	switch {
	case strings.HasPrefix(upper, "REPLY"):
		d = Decision{ShouldReply: true, Reason: "Model: reply"}
		s = s[len("REPLY"):]
	case strings.HasPrefix(upper, "SKIP"):
		d = Decision{ShouldReply: false, Reason: "Model: skip"}
		s = s[len("SKIP"):]
	default:
		return Decision{ShouldReply: true, Reason: "Ambiguous model answer, defaulting to reply"}
	}
	if reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":")); reason != "" {
		d.Reason = "Model: " + reason
	}
	return d
}
