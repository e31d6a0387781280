// Package commands implements the finanzctl command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"finanzen/internal/backend"
	"finanzen/internal/cli"
	"finanzen/internal/config"
	"finanzen/internal/log"
	"finanzen/internal/storage"
)

// app is the state shared by subcommands, opened in PersistentPreRunE.
type app struct {
	dbPath   string
	logLevel string

	cfg    *config.Config
	repo   *storage.SQLiteRepository
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "finanzctl",
		Short: "Administer the finanzen database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (default $LOG_LEVEL)")

	rootCmd.AddCommand(
		newImportCommand(a),
		newImportsCommand(a),
		newRulesCommand(a),
		newCategoriesCommand(a),
		newProfilesCommand(a),
		newExportCommand(a),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg := config.Load()
	if a.dbPath != "" {
		cfg.SQLiteDBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel, log.ComponentCLI)

	repo, err := cli.OpenSQLite(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	a.repo = repo
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (a *app) factory() *backend.Factory {
	return backend.NewFactory(a.logger.Logger)
}
