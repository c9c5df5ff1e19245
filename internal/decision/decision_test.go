package decision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/models"
)

type fakeChatter struct {
	content string
	err     error
	calls   int
	last    llm.Request
}

func (f *fakeChatter) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func msg(speaker, text string) models.ConversationMessage {
	return models.ConversationMessage{Speaker: speaker, Message: text}
}

const lead = "Jane Doe"

func TestDecide_EmptyConversation(t *testing.T) {
	f := &fakeChatter{}
	d := New(f, "m").Decide(context.Background(), nil, lead)
	if d.ShouldReply || d.Reason != "Empty conversation" {
		t.Errorf("Decide() = %+v", d)
	}
	if f.calls != 0 {
		t.Errorf("model calls = %d, want 0", f.calls)
	}
}

func TestDecide_DisengagementSkipsWithoutModel(t *testing.T) {
	convs := [][]models.ConversationMessage{
		{msg(lead, "Thanks but I'm NOT interested.")},
		{msg("Me", "Want to hop on a call?"), msg(lead, "No thanks, bye?")},
		// Would otherwise satisfy the momentum rule.
		{msg(lead, "hi"), msg("Me", "hey!"), msg(lead, "ok talk soon")},
		// Would otherwise satisfy the reciprocity rule.
		{msg("Me", "Does Friday work?"), msg(lead, "Not interested, can you remove me?")},
	}
	for i, conv := range convs {
		f := &fakeChatter{content: "REPLY: x"}
		d := New(f, "m").Decide(context.Background(), conv, lead)
		if d.ShouldReply {
			t.Errorf("case %d: ShouldReply = true, want false (%s)", i, d.Reason)
		}
		if f.calls != 0 {
			t.Errorf("case %d: model calls = %d, want 0", i, f.calls)
		}
	}
}

func TestDecide_QuestionRepliesWithoutModel(t *testing.T) {
	convs := [][]models.ConversationMessage{
		{msg(lead, "Can you tell me more about pricing?")},
		{msg("Me", "Hi Jane"), msg(lead, "What does it do?")},
		{msg(lead, "hello"), msg(lead, "is this automated?")},
	}
	for i, conv := range convs {
		f := &fakeChatter{content: "SKIP: x"}
		d := New(f, "m").Decide(context.Background(), conv, lead)
		if !d.ShouldReply {
			t.Errorf("case %d: ShouldReply = false, want true", i)
		}
		if f.calls != 0 {
			t.Errorf("case %d: model calls = %d, want 0", i, f.calls)
		}
	}
}

func TestDecide_Reciprocity(t *testing.T) {
	conv := []models.ConversationMessage{msg("Me", "Are you hiring?"), msg(lead, "jane doe here, why?")}
	d := New(nil, "").Decide(context.Background(), conv, " JANE DOE ")
	if !d.ShouldReply || !strings.Contains(d.Reason, "Question") {
		t.Errorf("Decide() = %+v", d)
	}
}

func TestDecide_Momentum(t *testing.T) {
	conv := []models.ConversationMessage{
		msg(lead, "Hi there"),
		msg("Me", "Hey Jane, thanks for connecting"),
		msg(lead, "Likewise, happy to be connected"),
	}
	f := &fakeChatter{}
	d := New(f, "m").Decide(context.Background(), conv, lead)
	if !d.ShouldReply || d.Reason != "Active back-and-forth" {
		t.Errorf("Decide() = %+v", d)
	}
	if f.calls != 0 {
		t.Errorf("model calls = %d", f.calls)
	}
}

func TestDecide_MomentumNeedsTwoFromOtherParty(t *testing.T) {
	conv := []models.ConversationMessage{
		msg("Me", "Hey Jane, thanks for connecting"),
		msg(lead, "Likewise"),
	}
	f := &fakeChatter{content: "SKIP: just an acknowledgement"}
	d := New(f, "m").Decide(context.Background(), conv, lead)
	if d.ShouldReply {
		t.Errorf("Decide() = %+v, want model skip", d)
	}
	if f.calls != 1 {
		t.Errorf("model calls = %d, want 1", f.calls)
	}
}

func TestDecide_PositiveKeyword(t *testing.T) {
	conv := []models.ConversationMessage{msg(lead, "We might be interested in a demo next month")}
	f := &fakeChatter{}
	d := New(f, "m").Decide(context.Background(), conv, lead)
	if !d.ShouldReply || !strings.Contains(d.Reason, "interested") {
		t.Errorf("Decide() = %+v", d)
	}
}

func TestDecide_ModelFallback(t *testing.T) {
	conv := []models.ConversationMessage{msg(lead, "Congrats on the new role")}
	f := &fakeChatter{content: "SKIP: pleasantry only"}
	d := New(f, "llama-3.1-8b-instant").Decide(context.Background(), conv, lead)
	if d.ShouldReply || d.Reason != "Model: pleasantry only" {
		t.Errorf("Decide() = %+v", d)
	}
	if f.last.Temperature != temperature || f.last.Model != "llama-3.1-8b-instant" {
		t.Errorf("request = %+v", f.last)
	}
	if !strings.Contains(f.last.Messages[1].Content, "Jane Doe: Congrats on the new role") {
		t.Errorf("transcript not embedded: %q", f.last.Messages[1].Content)
	}
}

func TestDecide_ModelFallbackLimitsHistory(t *testing.T) {
	var conv []models.ConversationMessage
	for i := 0; i < 30; i++ {
		conv = append(conv, msg(lead, "word"))
	}
	conv = append(conv, msg(lead, "Long update that has no keywords at all but keeps going and going for many words beyond twenty so momentum does not apply here"))
	f := &fakeChatter{content: "REPLY"}
	New(f, "m").Decide(context.Background(), conv, lead)
	if got := strings.Count(f.last.Messages[1].Content, "\n"); got != historyTurns+1 {
		t.Errorf("transcript lines = %d, want %d", got, historyTurns+1)
	}
}

func TestDecide_ModelErrorDefaultsToReply(t *testing.T) {
	conv := []models.ConversationMessage{msg(lead, "Congrats on the new role")}
	f := &fakeChatter{err: errors.New("boom")}
	d := New(f, "m").Decide(context.Background(), conv, lead)
	if !d.ShouldReply || d.Reason == "" {
		t.Errorf("Decide() = %+v", d)
	}
}

func TestDecide_NoModelDefaultsToReply(t *testing.T) {
	conv := []models.ConversationMessage{msg(lead, "Congrats on the new role")}
	d := New(nil, "").Decide(context.Background(), conv, lead)
	if !d.ShouldReply || d.Reason == "" {
		t.Errorf("Decide() = %+v", d)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in     string
		reply  bool
		reason string
	}{
		{"REPLY: they asked about timing", true, "Model: they asked about timing"},
		{"skip: closed the thread", false, "Model: closed the thread"},
		{"  SKIP", false, "Model: skip"},
		{"REPLY:", true, "Model: reply"},
		{"Maybe?", true, "Ambiguous model answer, defaulting to reply"},
		{"", true, "Ambiguous model answer, defaulting to reply"},
	}
	for _, tt := range tests {
		d := ParseVerdict(tt.in)
		if d.ShouldReply != tt.reply || d.Reason != tt.reason {
			t.Errorf("ParseVerdict(%q) = %+v, want {%v %q}", tt.in, d, tt.reply, tt.reason)
		}
	}
}

func TestIsOtherParty(t *testing.T) {
	if !IsOtherParty(msg("  jane DOE", "x"), "Jane Doe") {
		t.Error("case/space-insensitive match failed")
	}
	if IsOtherParty(msg("Alice", "x"), "Jane Doe") {
		t.Error("different speaker matched")
	}
}
