package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"api-boilerplate/internal/database"
	"api-boilerplate/internal/health"
	apphttp "api-boilerplate/internal/http"
	"api-boilerplate/internal/http/middleware"
	"api-boilerplate/internal/router"
	"api-boilerplate/internal/scheduler"
	"api-boilerplate/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until SIGINT or SIGTERM.

The database must be reachable within the configured number of attempts.
Registered models are migrated on startup unless DATABASE_AUTO_MIGRATE=false.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warnf("close database: %v", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, database.Models()...); err != nil {
			return err
		}
		logger.Infof("migrated %d models", len(database.Models()))
	}

	users, err := newUserService(db)
	if err != nil {
		return err
	}

	storageSvc, err := buildStorage(ctx)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}

	checkers := []health.Checker{database.Checker(db), storage.Checker(storageSvc)}

	sched := scheduler.New(scheduler.Config{Logger: logger.WithField("component", "scheduler")})
	if err := sched.Add(scheduler.StatusJob(cfg.Scheduler.StatusInterval, logger.WithField("component", "status"), checkers...)); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Shutdown()

	engine, routes := apphttp.NewEngine(cfg, &router.Deps{
		Logger:      logger,
		Users:       users,
		Storage:     storageSvc,
		Checkers:    checkers,
		RequireAuth: middleware.RequireAuth(users),
		MaxUploadMB: cfg.Minio.MaxUploadMB,
		PartSizeMB:  cfg.Minio.PartSizeMB,
	})
	logger.Infof("mounted %d routes", len(routes))

	srv := apphttp.NewServer(cfg.Server.Addr, engine, logger)
	if err := srv.Run(ctx, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("bye")
	return nil
}

// buildStorage creates the bucket client and waits for the bucket. An
// unreachable bucket is logged, not fatal; the health endpoint reports it.
func buildStorage(ctx context.Context) (storage.Service, error) {
	client, err := storage.NewClient(ctx, cfg.Minio)
	if err != nil {
		return nil, err
	}
	svc := storage.NewS3Service(client, cfg.Minio.BucketName)

	log := logger.WithField("component", "storage")
	if err := health.WaitReady(ctx, log, storage.Checker(svc), cfg.Database.ConnectAttempts, health.DefaultRetryInterval); err != nil {
		log.WithError(err).Warn("bucket not reachable, continuing")
	} else {
		log.Infof("using bucket %s at %s", cfg.Minio.BucketName, cfg.Minio.Endpoint())
	}
	return svc, nil
}
