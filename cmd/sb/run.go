package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/autopilot"
	"github.com/zulandar/switchboard/internal/browser"
	"github.com/zulandar/switchboard/internal/control"
	"github.com/zulandar/switchboard/internal/history"
	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/pacing"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		startNow   bool
		batch      int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reply engine and its control server",
		Long: `Connects to Chrome, opens the LinkedIn inbox and serves the control surface.
The engine stays idle until started with "sb start", the --start flag, or the
autostart schedule in the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, configPath, startNow, batch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().BoolVar(&startNow, "start", false, "start a session immediately")
	cmd.Flags().IntVarP(&batch, "n", "n", 0, "conversations per batch when using --start (default from config)")
	return cmd
}

func runRun(cmd *cobra.Command, configPath string, startNow bool, batch int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config for %q from %s\n", cfg.Owner, configPath)

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	if notifier == nil {
		fmt.Fprintln(out, "Lead alerts disabled (no email, Slack or Discord configured)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pacer := pacing.New()
	page, err := browser.New(ctx, browser.Opts{Config: &cfg.Browser, Pacer: pacer})
	if err != nil {
		return err
	}
	defer page.Close()
	fmt.Fprintf(out, "Browser attached, inbox at %s\n", cfg.Browser.InboxURL)

	engine, err := autopilot.New(autopilot.Opts{
		Config:   cfg,
		Page:     page,
		Store:    history.New(gormDB),
		Notifier: notifier,
		Pacer:    pacer,
		Chat: func(provider, model string) (llm.Chatter, error) {
			return llm.FromConfig(cfg, provider, model)
		},
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return control.Start(gctx, control.StartOpts{
			Controller: engine,
			Host:       cfg.Server.Host,
			Port:       cfg.Server.Port,
			Out:        out,
		})
	})
	if expr := cfg.Schedule.Autostart; expr != "" {
		next, err := autopilot.NextAutostart(expr, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Autostart schedule %q, next at %s\n", expr, next.Format("Mon Jan 2 15:04"))
		g.Go(func() error { return engine.RunAutostart(gctx, expr) })
	}
	if startNow {
		if err := engine.Start(autopilot.StartRequest{BatchSize: batch}); err != nil && !errors.Is(err, autopilot.ErrAlreadyRunning) {
			cancel()
			g.Wait()
			return err
		}
		fmt.Fprintln(out, "Session started")
	}

	err = g.Wait()
	fmt.Fprintln(out, "Shutting down...")
	return err
}
