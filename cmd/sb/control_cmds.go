package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/autopilot"
)

const requestTimeout = 15 * time.Second

func newStartCmd() *cobra.Command {
	var (
		flags     clientFlags
		batch     int
		strict    bool
		groq      bool
		groqModel string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a reply session on a running engine",
		Long: `Sends START to the engine served by "sb run". --strict and --groq override
the config for this session only when given explicitly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sc *autopilot.StartConfig
			if cmd.Flags().Changed("strict") || cmd.Flags().Changed("groq") || groqModel != "" {
				sc = &autopilot.StartConfig{GroqModel: groqModel}
				if cmd.Flags().Changed("strict") {
					sc.StrictHours = &strict
				}
				if cmd.Flags().Changed("groq") || groqModel != "" {
					useGroq := groq || groqModel != ""
					sc.UseGroq = &useGroq
				}
			}
			return runStart(cmd, &flags, batch, sc)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&batch, "n", "n", 0, "conversations per batch (default from config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "only work inside configured working hours")
	cmd.Flags().BoolVar(&groq, "groq", false, "use Groq instead of OpenAI")
	cmd.Flags().StringVar(&groqModel, "groq-model", "", "Groq model id (implies --groq)")
	return cmd
}

func runStart(cmd *cobra.Command, flags *clientFlags, batch int, sc *autopilot.StartConfig) error {
	c, err := flags.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	if _, err := c.Start(ctx, batch, sc); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Session started")
	return nil
}

func newStopCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running reply session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			if _, err := c.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPingCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the engine is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			start := time.Now()
			r, err := c.Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", r.Message, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckUnreadCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "check-unread",
		Short: "Count unread conversations in the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			r, err := c.CheckUnread(ctx)
			if err != nil {
				return err
			}
			n := 0
			if r.Unread != nil {
				n = *r.Unread
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", n)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
