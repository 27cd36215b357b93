package main

import (
	"github.com/spf13/cobra"

	"api-boilerplate/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables for all registered models",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close(db)

		models := database.Models()
		if err := database.Migrate(cmd.Context(), db, models...); err != nil {
			return err
		}
		logger.Infof("migrated %d models", len(models))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
