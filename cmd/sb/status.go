package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/control"
	"github.com/zulandar/switchboard/internal/history"
	"golang.org/x/term"
)

func newStatusCmd() *cobra.Command {
	var (
		flags    clientFlags
		watch    bool
		interval time.Duration
		logs     int
		sessions bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show engine state, counters and recent log",
		Long: `Shows whether a session is running, its counters and the newest log entries.
With --history, lists past sessions from the database instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessions {
				return runSessionHistory(cmd, flags.configPath)
			}
			c, err := flags.client()
			if err != nil {
				return err
			}
			if watch {
				return runStatusWatch(cmd, c, interval, logs)
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), c, logs)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "refresh interval for --watch")
	cmd.Flags().IntVar(&logs, "logs", 15, "number of log entries to show")
	cmd.Flags().BoolVar(&sessions, "history", false, "list past sessions")
	return cmd
}

func runStatus(ctx context.Context, out io.Writer, c *control.Client, logs int) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	r, err := c.Status(ctx)
	if err != nil {
		return err
	}
	renderStatus(out, r, logs, time.Now())
	return nil
}

func runStatusWatch(cmd *cobra.Command, c *control.Client, interval time.Duration, logs int) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	redraw := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		redraw = true
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if redraw {
			fmt.Fprint(out, "\033[H\033[2J")
		}
		if err := runStatus(ctx, out, c, logs); err != nil {
			fmt.Fprintf(out, "status: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runSessionHistory(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	rows, err := history.New(gormDB).ListSessions(20)
	if err != nil {
		return err
	}
	renderSessions(cmd.OutOrStdout(), rows)
	return nil
}
