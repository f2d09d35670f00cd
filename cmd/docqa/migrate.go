package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/docqa-backend/internal/app"
	"github.com/yungbote/docqa-backend/internal/data/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)
	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		return err
	}
	defer dbs.Close()

	if err := app.Migrate(cmd.Context(), dbs, cfg); err != nil {
		return err
	}
	cmd.Println("Schema is up to date.")
	return nil
}
