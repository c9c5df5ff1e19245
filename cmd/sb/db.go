package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}
	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Switchboard tables",
		Long:  "Connects to the configured SQLite file or MySQL database and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, _, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	target := cfg.Database.Path
	if cfg.Database.Driver == "mysql" {
		target = fmt.Sprintf("%s@%s:%d", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
	}
	fmt.Fprintf(out, "Connected to %s (%s)\n", target, cfg.Database.Driver)
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}
