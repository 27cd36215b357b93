package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"api-boilerplate/internal/database"
)

var (
	adminUsername string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create the admin user if it does not exist",
	Example: `  server create-admin --username admin --password 'change-me'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateAuth(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx := cmd.Context()
		db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(ctx, db, database.Models()...); err != nil {
			return err
		}

		users, err := newUserService(db)
		if err != nil {
			return err
		}

		created, err := users.EnsureAdmin(ctx, adminUsername, adminPassword)
		if err != nil {
			return err
		}
		reportAdmin(logger, created, adminUsername, adminPassword)
		return nil
	},
}

// reportAdmin always names the admin account. The password is only echoed
// when this run set it.
func reportAdmin(log logrus.FieldLogger, created bool, username, password string) {
	if !created {
		log.Warnf("user %q already exists, password left unchanged", username)
		log.Warnf("admin username: %s", username)
		return
	}
	log.Warnf("admin user created")
	log.Warnf("admin username: %s", username)
	log.Warnf("admin password: %s", password)
	log.Warn("change the admin password before exposing the API")
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "admin", "admin password")
	rootCmd.AddCommand(createAdminCmd)
}
