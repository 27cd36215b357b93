package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"api-boilerplate/internal/config"
	"api-boilerplate/internal/database"
	"api-boilerplate/internal/health"
	"api-boilerplate/internal/logging"
	"api-boilerplate/internal/repository/orm"
	"api-boilerplate/internal/security"
	"api-boilerplate/internal/service"
)

var (
	cfg    config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "API boilerplate server",
	Long:          `REST API with JWT authentication, object storage and health checks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(cfg.Log.Level)
		if logger.IsLevelEnabled(logrus.DebugLevel) {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute wraps rootCmd so errors end up in the log instead of stderr usage text.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error(err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return err
	}
	return nil
}

// openDatabase connects with the configured retry budget.
func openDatabase(ctx context.Context) (*gorm.DB, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return database.Connect(ctx, cfg.Database.URL, logger, cfg.Database.ConnectAttempts, health.DefaultRetryInterval)
}

func newUserService(db *gorm.DB) (service.UserService, error) {
	tokens, err := security.NewTokenManager(cfg.JWT.Algorithm, cfg.SecretKey, cfg.JWT.TokenTTL())
	if err != nil {
		return nil, err
	}
	return service.NewUserService(orm.NewUserRepository(db), tokens, cfg.SecretKey, cfg.Auth.RegisterSecret), nil
}
