package qualify

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
	last    llm.Request
	calls   int
}

func (f *fakeChatter) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func TestIsQualified(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    bool
	}{
		{"yes", "yes", nil, true},
		{"YES with period", " YES. ", nil, true},
		{"no", "no", nil, false},
		{"verbose yes", "Yes, they asked for pricing", nil, false},
		{"error", "", errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeChatter{content: tt.content, err: tt.err}
			q := New(f, "gpt-4o-mini")
			got := q.IsQualified(context.Background(), "asks about pricing", []string{"hi", "how much is it?"})
			if got != tt.want {
				t.Errorf("IsQualified() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsQualified_Request(t *testing.T) {
	f := &fakeChatter{content: "yes"}
	New(f, "gpt-4o-mini").IsQualified(context.Background(), "Mentions budget", []string{"first", "second"})

	if f.last.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", f.last.Temperature)
	}
	user := f.last.Messages[1].Content
	for _, want := range []string{"Mentions budget", "1. first", "2. second"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestIsQualified_SkipsWithoutInputs(t *testing.T) {
	f := &fakeChatter{content: "yes"}
	q := New(f, "m")
	if q.IsQualified(context.Background(), "", []string{"x"}) {
		t.Error("empty criteria should not qualify")
	}
	if q.IsQualified(context.Background(), "rule", nil) {
		t.Error("no messages should not qualify")
	}
	if f.calls != 0 {
		t.Errorf("calls = %d, want 0", f.calls)
	}
	if New(nil, "").IsQualified(context.Background(), "rule", []string{"x"}) {
		t.Error("nil chatter should not qualify")
	}
}

func TestLastTwo(t *testing.T) {
	conv := []models.ConversationMessage{
		{Speaker: "A", Message: "one"},
		{Speaker: "B", Message: "two"},
		{Speaker: "A", Message: "three"},
	}
	got := LastTwo(conv)
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Errorf("LastTwo() = %v", got)
	}
	if got := LastTwo(conv[:1]); len(got) != 1 || got[0] != "one" {
		t.Errorf("LastTwo(1) = %v", got)
	}
}

func TestFormatTranscript(t *testing.T) {
	conv := []models.ConversationMessage{
		{Speaker: "Jane", Message: "Hi"},
		{Speaker: "Alice", Message: "Hello!"},
	}
	if got := FormatTranscript(conv); got != "Jane: Hi\nAlice: Hello!" {
		t.Errorf("FormatTranscript() = %q", got)
	}
}
