// Package doubletext optionally splits a drafted reply into two messages sent
// a few seconds apart.
package doubletext

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/zulandar/switchboard/internal/pacing"
)

// Pattern kinds.
const (
	KindPriceBreakdown     = "price_breakdown"
	KindAfterthought       = "afterthought"
	KindQuestionRefinement = "question_refinement"
	KindEmojiFollowup      = "emoji_followup"
)

const (
	triggerWords = 40
	jitter       = 0.4
)

var baseDelay = map[string]time.Duration{
	KindPriceBreakdown:     4 * time.Second,
	KindAfterthought:       6 * time.Second,
	KindQuestionRefinement: 8 * time.Second,
	KindEmojiFollowup:      2500 * time.Millisecond,
}

var (
	connectives = []string{"Also,", "Quick note:", "Oh and", "Btw,"}
	softeners   = []string{
		"No rush, a ballpark is fine.",
		"Even a rough idea helps.",
		"Happy to work around your schedule.",
	}
	emojis       = []string{"👍", "🙂", "🙌", "😊"}
	affirmatives = []string{"sounds good", "great", "awesome", "perfect", "sure", "yes", "absolutely", "love", "nice", "cool", "got it"}
)

// Pattern is a reply split into two sends. Delay is the pause between them.
type Pattern struct {
	FirstMessage  string        `json:"first_message"`
	SecondMessage string        `json:"second_message"`
	Delay         time.Duration `json:"delay"`
	Kind          string        `json:"kind"`
}

// Context describes the thread the reply answers.
type Context struct {
	MessageCount         int
	LastMessageQuestions int
}

// Generator chooses a split strategy.
type Generator struct {
	pacer *pacing.Pacer
}

// New returns a Generator drawing randomness from p.
func New(p *pacing.Pacer) *Generator {
	return &Generator{pacer: p}
}

// MaybeSplit returns nil when the reply should go out as a single message.
// Strategies are tried in a fixed order and the first that applies wins.
func (g *Generator) MaybeSplit(reply string, c Context) *Pattern {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil
	}
	if len(strings.Fields(reply)) <= triggerWords && c.LastMessageQuestions == 0 {
		return nil
	}
	for _, try := range []func(string) *Pattern{
		g.priceBreakdown,
		g.afterthought,
		g.questionRefinement,
		g.emojiFollowup,
	} {
		if p := try(reply); p != nil {
			p.Delay = g.pacer.Jitter(baseDelay[p.Kind], jitter)
			return p
		}
	}
	return nil
}

func (g *Generator) priceBreakdown(reply string) *Pattern {
	s := Sentences(reply)
	if len(s) < 3 {
		return nil
	}
	mid := (len(s) + 1) / 2
	first := strings.Join(s[:mid], " ")
	second := strings.Join(s[mid:], " ")
	if len(first) < 20 || len(second) < 10 {
		return nil
	}
	return &Pattern{FirstMessage: first, SecondMessage: second, Kind: KindPriceBreakdown}
}

func (g *Generator) afterthought(reply string) *Pattern {
	s := Sentences(reply)
	if len(s) < 2 {
		return nil
	}
	rest := lowerFirst(strings.Join(s[1:], " "))
	conn := connectives[g.pacer.IntN(len(connectives))]
	return &Pattern{FirstMessage: s[0], SecondMessage: conn + " " + rest, Kind: KindAfterthought}
}

func (g *Generator) questionRefinement(reply string) *Pattern {
	if !strings.HasSuffix(reply, "?") {
		return nil
	}
	return &Pattern{
		FirstMessage:  reply,
		SecondMessage: softeners[g.pacer.IntN(len(softeners))],
		Kind:          KindQuestionRefinement,
	}
}

func (g *Generator) emojiFollowup(reply string) *Pattern {
	if len(strings.Fields(reply)) >= 15 {
		return nil
	}
	if last, _ := utf8.DecodeLastRuneInString(reply); unicode.IsPunct(last) {
		return nil
	}
	lower := strings.ToLower(reply)
	for _, a := range affirmatives {
		if strings.HasPrefix(lower, a) {
			return &Pattern{
				FirstMessage:  reply,
				SecondMessage: emojis[g.pacer.IntN(len(emojis))],
				Kind:          KindEmojiFollowup,
			}
		}
	}
	return nil
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// Sentences splits text on terminal punctuation, trimming each piece and
// dropping empties.
func Sentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// CountQuestions is the number of question marks in text.
func CountQuestions(text string) int {
	return strings.Count(text, "?")
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
