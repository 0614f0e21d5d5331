package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/persons/internal/config"
	"github.com/JonMunkholm/persons/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Creates or upgrades the persons table in the database named by DATABASE_URL.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if cfg.Database.Driver == config.DriverMemory {
		cmd.Println("The memory store has no schema; nothing to migrate.")
		return nil
	}

	if err := store.Migrate(commandContext(cmd), cfg.Database.URL); err != nil {
		return err
	}
	cmd.Println("Migrations applied.")
	return nil
}
