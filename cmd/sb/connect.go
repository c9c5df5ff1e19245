package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/control"
	"github.com/zulandar/switchboard/internal/db"
	"gorm.io/gorm"
)

const defaultConfigPath = "switchboard.yaml"

// connectFromConfig loads the config and opens the migrated database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// clientFlags are shared by the commands that talk to a running `sb run`.
type clientFlags struct {
	configPath string
	addr       string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "control server address (overrides the config's server section)")
}

// client returns a control client for --addr, or for the server configured
// in the config file.
func (f *clientFlags) client() (*control.Client, error) {
	if f.addr != "" {
		return control.NewClient(baseURL(f.addr), nil), nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return control.NewClient(baseURL(addr), nil), nil
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
