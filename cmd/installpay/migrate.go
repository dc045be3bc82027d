package main

import (
	"fmt"

	"github.com/artpar/installpay/bootstrap"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply pending schema migrations to the configured database.

SQLite uses the embedded versioned migrations; postgres uses GORM
auto-migration. Remote and memory stores have no schema.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stores, err := bootstrap.OpenStores(cmd.Context(), cfg.Database, zerolog.Nop())
	if err != nil {
		return err
	}
	defer stores.Close()

	out := cmd.OutOrStdout()
	switch {
	case stores.Driver == "postgres":
		fmt.Fprintln(out, "Schema migrated.")
	case len(stores.Migrations) == 0:
		fmt.Fprintln(out, "Schema up to date.")
	default:
		for _, v := range stores.Migrations {
			fmt.Fprintf(out, "applied %s\n", v)
		}
	}
	return nil
}
