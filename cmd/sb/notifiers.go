package main

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/notify/discord"
	"github.com/zulandar/switchboard/internal/notify/slack"
)

// buildNotifier assembles the configured lead alert sinks. It returns nil
// when none is configured.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	var sinks notify.Multi
	n := cfg.Notify

	if n.Email != "" {
		email, err := notify.NewEmail(notify.EmailOpts{
			Endpoint: n.EmailEndpoint,
			APIKey:   n.EmailAPIKey,
			From:     n.EmailFrom,
			To:       n.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("email alerts: %w", err)
		}
		sinks = append(sinks, email)
	}
	if n.Slack.BotToken != "" {
		s, err := slack.New(slack.Opts{BotToken: n.Slack.BotToken, ChannelID: n.Slack.ChannelID})
		if err != nil {
			return nil, fmt.Errorf("slack alerts: %w", err)
		}
		sinks = append(sinks, s)
	}
	if n.Discord.BotToken != "" {
		d, err := discord.New(discord.Opts{BotToken: n.Discord.BotToken, ChannelID: n.Discord.ChannelID})
		if err != nil {
			return nil, fmt.Errorf("discord alerts: %w", err)
		}
		sinks = append(sinks, d)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
