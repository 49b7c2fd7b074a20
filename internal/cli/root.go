// Package cli implements the backtester command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/internal/logging"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// RootConfig holds the persistent flags shared by every subcommand.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	DataDir    string
	LogLevel   string
	LogFormat  string
}

// load returns the config file (or defaults) with environment and flag
// overrides applied. Only flags the user set override the file.
func (rc *RootConfig) load(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
		config.ApplyEnvOverrides(cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Journal.DBPath = rc.DBPath
	}
	if flags.Changed("data-dir") {
		cfg.Data.Dir = rc.DataDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = rc.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = rc.LogFormat
	}
	return cfg, nil
}

func (rc *RootConfig) logger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "backtester",
		Short:         "Backtester: day by day stock strategy simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./backtest.db", "SQLite journal database")
	cmd.PersistentFlags().StringVar(&rc.DataDir, "data-dir", "./data", "Directory of daily bar files")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")

	cmd.AddCommand(
		newRunCmd(rc),
		newSymbolsCmd(rc),
		newConvertCmd(rc),
		newReportCmd(rc),
		newJournalCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "backtester (%s)\n", Version)
		},
	}
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
