package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "schemasync",
	Short: "SQL Server schema comparison and definition sync",
	Long: `A CLI tool that compares table structures, stored procedures and views
between a base database and any number of target databases, and optionally
pushes the base definitions of procedures and views to the targets.

Features:
  - Column, key, index, trigger and unique constraint comparison
  - Comment- and whitespace-insensitive definition comparison
  - Line diffs of differing definitions
  - Bounded concurrent fan-out across targets
  - Dependency-ordered sync with per-object session locks`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "schemasync.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains the global flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
	}
}

// loadConfig loads the config file, applies overrides on top of the global
// flags and validates the result.
func loadConfig(o config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	global := GetCLIOverrides()
	o.LogLevel, o.LogFormat = global.LogLevel, global.LogFormat
	cfg.ApplyOverrides(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connectorFactory builds the connector commands open databases through,
// together with the function closing everything it opened.
var connectorFactory = func(cfg *config.Config) (database.Connector, func() error) {
	m := database.NewManager(cfg.Processing)
	return m, m.Close
}
