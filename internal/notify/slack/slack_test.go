package slack

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/switchboard/internal/notify"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu       sync.Mutex
	posted   []string
	postErrs []error
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.postErrs) > 0 {
		err := m.postErrs[0]
		m.postErrs = m.postErrs[1:]
		if err != nil {
			return "", "", err
		}
	}
	m.posted = append(m.posted, channelID)
	return channelID, "1234567890.123456", nil
}

var alert = notify.Alert{
	Owner:      "Alice",
	LeadName:   "Jane Doe",
	Criteria:   "Asks about pricing",
	Transcript: "Jane Doe: How much?",
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Opts{ChannelID: "C1"})
	if err == nil || !strings.Contains(err.Error(), "bot token") {
		t.Errorf("err = %v", err)
	}
}

func TestNew_RequiresChannel(t *testing.T) {
	_, err := New(Opts{BotToken: "xoxb-1"})
	if err == nil || !strings.Contains(err.Error(), "channel") {
		t.Errorf("err = %v", err)
	}
}

func TestNotify_Posts(t *testing.T) {
	mc := &mockSlackClient{}
	s, err := New(Opts{ChannelID: "C123", Client: mc})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mc.posted) != 1 || mc.posted[0] != "C123" {
		t.Errorf("posted = %v", mc.posted)
	}
}

func TestNotify_RetriesRateLimit(t *testing.T) {
	mc := &mockSlackClient{postErrs: []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}}
	s, _ := New(Opts{ChannelID: "C123", Client: mc})
	if err := s.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mc.posted) != 1 {
		t.Errorf("posted = %d, want 1", len(mc.posted))
	}
}

func TestNotify_Error(t *testing.T) {
	mc := &mockSlackClient{postErrs: []error{errors.New("channel_not_found")}}
	s, _ := New(Opts{ChannelID: "C123", Client: mc})
	err := s.Notify(context.Background(), alert)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("err = %v", err)
	}
}

func TestRetryOnRateLimit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Second}
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryOnRateLimit_Exhausted(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

func TestAlertToAttachment(t *testing.T) {
	att := alertToAttachment(alert)
	if att.Title != "Qualified lead: Jane Doe" || att.Color != notify.ColorLead {
		t.Errorf("attachment = %+v", att)
	}
	if !strings.Contains(att.Text, "How much?") {
		t.Errorf("Text = %q", att.Text)
	}
	if len(att.Fields) != 2 || att.Fields[0].Value != "Asks about pricing" {
		t.Errorf("Fields = %+v", att.Fields)
	}
	if opts := buildMessageOptions(alert); len(opts) != 2 {
		t.Errorf("options = %d, want 2", len(opts))
	}
}
