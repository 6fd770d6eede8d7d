// Package main implements the tenantstate CLI for exercising the state
// store from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tenantstate/internal/config"
	"github.com/fyrsmithlabs/tenantstate/internal/logging"
	"go.uber.org/zap"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tenantstate",
	Short: "Immutable multi-tenant state store operations",
	Long: `tenantstate is a command-line interface for the immutable state store.
It provides a scripted end-to-end demo and a transition benchmark.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(benchCmd)
}

// setup loads configuration and builds the logger shared by subcommands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, nil
}
