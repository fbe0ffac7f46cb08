package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/adapter/duckdb"
	"github.com/sadopc/datagate/internal/adapter/mongodb"
	"github.com/sadopc/datagate/internal/adapter/mysql"
	"github.com/sadopc/datagate/internal/adapter/postgres"
	"github.com/sadopc/datagate/internal/adapter/sqlite"
	"github.com/sadopc/datagate/internal/audit"
	"github.com/sadopc/datagate/internal/config"
	"github.com/sadopc/datagate/internal/history"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:   "datagate",
		Short: "A data access gateway for databases and uploaded files",
		Long: `datagate serves a JSON API over live database connections
(SQLite, MySQL, PostgreSQL, MongoDB and, when built with -tags duckdb,
DuckDB) and over uploaded CSV, Excel and JSON files.

Examples:
  datagate serve                         # Listen on the configured address
  datagate serve --addr :8080            # Override the listen address
  datagate inspect ./sales.xlsx          # Preview a file and its inferred schema
  datagate inspect -d ';' ./export.csv   # Semicolon-separated CSV`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file path")

	rootCmd.AddCommand(
		newServeCmd(&configFlag),
		newInspectCmd(),
		newEnginesCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datagate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List supported database engines",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, a := range adapters() {
				e := a.Engine()
				line := fmt.Sprintf("  - %-9s %-10s", e, e.Family())
				if port := a.DefaultPort(); port > 0 {
					line += fmt.Sprintf(" port %d", port)
				}
				if e == adapter.DuckDB && !duckdb.Enabled {
					line += " (not compiled in)"
				}
				fmt.Fprintln(w, strings.TrimRight(line, " "))
			}
		},
	}
}

// adapters returns one adapter per supported engine.
func adapters() []adapter.Adapter {
	return []adapter.Adapter{
		sqlite.New(),
		mysql.New(),
		postgres.New(),
		mongodb.New(),
		duckdb.New(),
	}
}

// loadConfig reads the --config file when given, otherwise the default
// location. Only an explicitly named file is required to load.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section of the config.
func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openAudit opens the audit log when enabled. The default path lives in the
// config directory. Failure to open is reported, not fatal.
func openAudit(ac config.AuditConfig, logger *slog.Logger) *audit.Logger {
	if !ac.Enabled {
		return nil
	}
	path := ac.Path
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			logger.Warn("audit log disabled", "error", err)
			return nil
		}
		path = filepath.Join(dir, "audit.jsonl")
	}
	l, err := audit.New(path, ac.MaxSizeMB)
	if err != nil {
		logger.Warn("could not open audit log", "path", path, "error", err)
		return nil
	}
	logger.Info("audit log enabled", "path", path)
	return l
}

// openHistory opens the query history store when enabled. Failure to open is
// reported, not fatal.
func openHistory(hc config.HistoryConfig, logger *slog.Logger) *history.Store {
	if !hc.Enabled {
		return nil
	}
	path := hc.Path
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			logger.Warn("query history disabled", "error", err)
			return nil
		}
		path = filepath.Join(dir, "history.db")
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("could not open query history", "path", path, "error", err)
		return nil
	}
	logger.Info("query history enabled", "path", path)
	return store
}
