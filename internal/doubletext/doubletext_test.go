package doubletext

import (
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/pacing"
)

func newGen() *Generator {
	return New(pacing.NewSeeded(42))
}

func assertDelay(t *testing.T, p *Pattern, base time.Duration) {
	t.Helper()
	lo := time.Duration(float64(base) * 0.6)
	hi := time.Duration(float64(base) * 1.4)
	if p.Delay < lo || p.Delay > hi {
		t.Errorf("Delay = %v, want within [%v, %v]", p.Delay, lo, hi)
	}
}

func TestMaybeSplit_NoTrigger(t *testing.T) {
	if p := newGen().MaybeSplit("Sounds good, talk Thursday.", Context{}); p != nil {
		t.Errorf("MaybeSplit() = %+v, want nil", p)
	}
	if p := newGen().MaybeSplit("   ", Context{LastMessageQuestions: 2}); p != nil {
		t.Errorf("MaybeSplit(blank) = %+v, want nil", p)
	}
}

func TestMaybeSplit_PriceBreakdownWins(t *testing.T) {
	reply := "Our starter plan is $10 a month. The team plan is $40 a month. Both include onboarding and support."
	p := newGen().MaybeSplit(reply, Context{MessageCount: 3, LastMessageQuestions: 1})
	if p == nil {
		t.Fatal("MaybeSplit() = nil")
	}
	if p.Kind != KindPriceBreakdown {
		t.Fatalf("Kind = %q, want %q", p.Kind, KindPriceBreakdown)
	}
	if p.FirstMessage != "Our starter plan is $10 a month. The team plan is $40 a month." {
		t.Errorf("FirstMessage = %q", p.FirstMessage)
	}
	if p.SecondMessage != "Both include onboarding and support." {
		t.Errorf("SecondMessage = %q", p.SecondMessage)
	}
	assertDelay(t, p, 4*time.Second)
}

func TestMaybeSplit_PriceBreakdownRejectsShortHalves(t *testing.T) {
	// Three sentences but the first half is under 20 characters.
	reply := "Yes. Sure. We can definitely do a call next week?"
	p := newGen().MaybeSplit(reply, Context{LastMessageQuestions: 1})
	if p == nil {
		t.Fatal("MaybeSplit() = nil")
	}
	if p.Kind != KindAfterthought {
		t.Errorf("Kind = %q, want afterthought fallback", p.Kind)
	}
}

func TestMaybeSplit_Afterthought(t *testing.T) {
	reply := "Great question, happy to explain. We work mostly with B2B SaaS teams."
	p := newGen().MaybeSplit(reply, Context{LastMessageQuestions: 1})
	if p == nil || p.Kind != KindAfterthought {
		t.Fatalf("MaybeSplit() = %+v", p)
	}
	if p.FirstMessage != "Great question, happy to explain." {
		t.Errorf("FirstMessage = %q", p.FirstMessage)
	}
	found := false
	for _, c := range connectives {
		if p.SecondMessage == c+" we work mostly with B2B SaaS teams." {
			found = true
		}
	}
	if !found {
		t.Errorf("SecondMessage = %q", p.SecondMessage)
	}
	assertDelay(t, p, 6*time.Second)
}

func TestMaybeSplit_QuestionRefinement(t *testing.T) {
	reply := "What budget range are you working with?"
	p := newGen().MaybeSplit(reply, Context{LastMessageQuestions: 1})
	if p == nil || p.Kind != KindQuestionRefinement {
		t.Fatalf("MaybeSplit() = %+v", p)
	}
	if p.FirstMessage != reply {
		t.Errorf("FirstMessage = %q", p.FirstMessage)
	}
	ok := false
	for _, s := range softeners {
		ok = ok || p.SecondMessage == s
	}
	if !ok {
		t.Errorf("SecondMessage = %q", p.SecondMessage)
	}
	assertDelay(t, p, 8*time.Second)
}

func TestMaybeSplit_EmojiFollowup(t *testing.T) {
	p := newGen().MaybeSplit("Sounds good see you then", Context{LastMessageQuestions: 1})
	if p == nil || p.Kind != KindEmojiFollowup {
		t.Fatalf("MaybeSplit() = %+v", p)
	}
	ok := false
	for _, e := range emojis {
		ok = ok || p.SecondMessage == e
	}
	if !ok {
		t.Errorf("SecondMessage = %q", p.SecondMessage)
	}
	assertDelay(t, p, 2500*time.Millisecond)
}

func TestMaybeSplit_NoStrategyApplies(t *testing.T) {
	// One sentence, punctuated, not a question.
	if p := newGen().MaybeSplit("Thursday works for me.", Context{LastMessageQuestions: 1}); p != nil {
		t.Errorf("MaybeSplit() = %+v, want nil", p)
	}
	// Unpunctuated but not affirmative.
	if p := newGen().MaybeSplit("Maybe next week then", Context{LastMessageQuestions: 1}); p != nil {
		t.Errorf("MaybeSplit() = %+v, want nil", p)
	}
}

func TestMaybeSplit_LongReplyTriggers(t *testing.T) {
	reply := strings.Repeat("word ", 30) + "here. " + strings.Repeat("more ", 15) + "text."
	p := newGen().MaybeSplit(reply, Context{})
	if p == nil {
		t.Fatal("MaybeSplit() = nil for a reply over 40 words")
	}
	if p.Kind != KindAfterthought {
		t.Errorf("Kind = %q", p.Kind)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Hi there! How are you? Fine. trailing bit")
	want := []string{"Hi there!", "How are you?", "Fine.", "trailing bit"}
	if len(got) != len(want) {
		t.Fatalf("Sentences() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentences()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCountQuestions(t *testing.T) {
	if n := CountQuestions("Why? How? ok"); n != 2 {
		t.Errorf("CountQuestions() = %d", n)
	}
}
