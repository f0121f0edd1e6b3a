package main

import (
	"fmt"
	"os"

	"finwatch/internal/backend"
	"finwatch/internal/cli"
	"finwatch/internal/config"
	"finwatch/internal/log"

	"github.com/spf13/cobra"
)

// opener builds the engine a command runs against.
type opener func(dbPath string) (*backend.Engine, error)

// openFromEnv loads configuration like the servers do. Logs go to stderr so
// command output stays clean.
func openFromEnv(dbPath string) (*backend.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.DefaultConfig().Level
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentCLI, Output: os.Stderr})
	log.SetDefault(logger)

	return cli.OpenEngine(cfg, logger, backend.RoleCLI)
}

type app struct {
	open   opener
	dbPath string
	engine *backend.Engine
}

func newRootCmd(open opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "finwatchctl",
		Short:         "Ledger and monitoring maintenance",
		Long:          "Run sweeps, recompute balances and budgets, and inspect alerts against the finwatch database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.open(a.dbPath)
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			a.engine = engine
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.engine == nil {
				return nil
			}
			err := a.engine.Close()
			a.engine = nil
			return err
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(
		a.sweepCmd(),
		a.recomputeCmd(),
		a.checkCmd(),
		a.notificationsCmd(),
		a.summaryCmd(),
	)
	root.AddCommand(categoriesCmd())
	return root
}

// execute runs root and prints a returned error to its error stream.
func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}
