// Package discord posts lead alerts to a Discord channel as an embed.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/switchboard/internal/notify"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff for rate-limited sends.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 30 * time.Second
	// maxEmbedDescription is Discord's description limit.
	maxEmbedDescription = 4096
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sink implements notify.Notifier for Discord. It only uses the REST API, so
// no gateway connection is opened.
type Sink struct {
	sess        session
	channelID   string
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// Opts holds parameters for creating a Discord Sink.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Sink.
func New(opts Opts) (*Sink, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}
	s := &Sink{
		sess:        opts.Session,
		channelID:   opts.ChannelID,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
	if s.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		s.sess = dg
	}
	return s, nil
}

// Notify implements notify.Notifier.
func (s *Sink) Notify(ctx context.Context, a notify.Alert) error {
	data := buildMessageSend(a)
	err := s.retryOnRateLimit(ctx, func() error {
		_, sendErr := s.sess.ChannelMessageSendComplex(s.channelID, data)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// buildMessageSend renders the alert as one embed.
func buildMessageSend(a notify.Alert) *discordgo.MessageSend {
	desc := "```\n" + a.Transcript + "\n```"
	if len(desc) > maxEmbedDescription {
		desc = desc[:maxEmbedDescription-7] + "...\n```"
	}
	embed := &discordgo.MessageEmbed{
		Title:       a.Subject(),
		Description: desc,
		Color:       parseHexColor(notify.ColorLead),
	}
	if a.Criteria != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Criteria", Value: a.Criteria})
	}
	if a.Owner != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Inbox", Value: a.Owner, Inline: true})
	}
	if !a.Time.IsZero() {
		embed.Timestamp = a.Time.Format(time.RFC3339)
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// 429 responses. It respects context cancellation.
func (s *Sink) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * s.baseBackoff
		if wait > s.maxBackoff {
			wait = s.maxBackoff
		}
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
