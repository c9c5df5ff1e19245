package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/history"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect captured lead profiles",
	}
	cmd.AddCommand(newProfileShowCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Print the cached profile for a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	return cmd
}

func runProfileShow(cmd *cobra.Command, configPath, leadID string) error {
	out := cmd.OutOrStdout()
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	p, err := history.New(gormDB).GetLeadProfile(leadID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no profile captured for %q", leadID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, headerStyle.Render(p.LeadID))
	for _, row := range [][2]string{
		{"Headline", p.Headline},
		{"Title", p.JobTitle},
		{"Company", p.Company},
		{"Location", p.Location},
		{"Degree", p.ConnectionDegree},
	} {
		if row[1] != "" {
			fmt.Fprintf(out, "  %-9s %s\n", row[0], row[1])
		}
	}
	stale := ""
	if history.ShouldRefreshProfile(p, time.Now()) {
		stale = " (stale, refreshed on next contact)"
	}
	fmt.Fprintf(out, "  %-9s %s%s\n", "Scraped", p.LastScraped.Local().Format("2006-01-02 15:04"), stale)
	return nil
}
