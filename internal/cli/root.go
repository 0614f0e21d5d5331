// Package cli implements personctl, the command-line client for the persons
// store. It talks to the store directly through the same service the HTTP
// server uses, so imports behave identically.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/persons/internal/config"
	"github.com/JonMunkholm/persons/internal/core"
	"github.com/JonMunkholm/persons/internal/logging"
	"github.com/JonMunkholm/persons/internal/store"
)

var (
	// cfg and service are set by PersistentPreRunE; tests inject them.
	cfg     *config.Config
	service *core.Service

	closeStore = func() {}
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "personctl",
	Short: "Manage person records",
	Long: `personctl imports CSV files into the persons store and inspects its records.

Configuration is read from the environment (and an optional .env file) using
the same variables as the server, e.g. STORE_DRIVER and DATABASE_URL.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeStore() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and opens the store unless a service was
// injected.
func setup(cmd *cobra.Command, _ []string) error {
	if service != nil {
		return nil
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	// stdout carries command output, so logs go to stderr.
	slog.SetDefault(slog.New(logging.NewHandler(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)))

	if cmd == migrateCmd {
		return nil
	}

	gw, closeFn, err := store.Open(commandContext(cmd), cfg.Database)
	if err != nil {
		return err
	}
	closeStore = closeFn

	service = core.NewService(gw, core.ServiceConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
		ImportTimeout: cfg.Upload.Timeout,
		TempDir:       cfg.Upload.TempDir,
	})
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// commandError wraps err with the failed operation. Catalogued errors read as
// their user message, code and action; anything else keeps its full text.
func commandError(op string, err error) error {
	return &cmdError{op: op, err: err}
}

type cmdError struct {
	op  string
	err error
}

func (e *cmdError) Error() string {
	if core.IsUserFacing(e.err) {
		return fmt.Sprintf("%s failed: %s", e.op, core.FormatUserError(e.err))
	}
	return fmt.Sprintf("%s failed [%s]: %v", e.op, core.MapError(e.err).Code, e.err)
}

func (e *cmdError) Unwrap() error {
	return e.err
}
