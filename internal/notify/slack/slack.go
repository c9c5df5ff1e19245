// Package slack posts lead alerts to a Slack channel with a bot token.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/switchboard/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Sink implements notify.Notifier for Slack.
type Sink struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Sink.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Sink.
func New(opts Opts) (*Sink, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Sink{client: client, channelID: opts.ChannelID}, nil
}

// Notify implements notify.Notifier.
func (s *Sink) Notify(ctx context.Context, a notify.Alert) error {
	options := buildMessageOptions(a)
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := s.client.PostMessage(s.channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// buildMessageOptions renders the alert as a text fallback plus one colored
// attachment.
func buildMessageOptions(a notify.Alert) []slackapi.MsgOption {
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(a.Subject(), false),
		slackapi.MsgOptionAttachments(alertToAttachment(a)),
	}
}

func alertToAttachment(a notify.Alert) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    a.Subject(),
		Text:     "```" + a.Transcript + "```",
		Color:    notify.ColorLead,
		Fallback: notify.Summary(a),
	}
	if a.Criteria != "" {
		att.Fields = append(att.Fields, slackapi.AttachmentField{Title: "Criteria", Value: a.Criteria})
	}
	if a.Owner != "" {
		att.Fields = append(att.Fields, slackapi.AttachmentField{Title: "Inbox", Value: a.Owner, Short: true})
	}
	return att
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
