package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"api-boilerplate/internal/health"
)

// Connect validates rawURL, then opens and pings the database, retrying up to
// attempts times with a fixed pause between tries.
func Connect(ctx context.Context, rawURL string, logger logrus.FieldLogger, attempts int, interval time.Duration) (*gorm.DB, error) {
	info, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("database", info.Redacted())

	var db *gorm.DB
	checker := health.CheckFunc{
		ComponentName: "database",
		Fn: func(ctx context.Context) error {
			if db == nil {
				opened, err := Open(rawURL, logger)
				if err != nil {
					return err
				}
				db = opened
			}
			return Ping(ctx, db)
		},
	}

	if err := health.WaitReady(ctx, logger, checker, attempts, interval); err != nil {
		if db != nil {
			_ = Close(db)
		}
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("database connected")
	return db, nil
}

// Checker reports database connectivity for health aggregation.
func Checker(db *gorm.DB) health.Checker {
	return health.CheckFunc{
		ComponentName: "database",
		Fn: func(ctx context.Context) error {
			return Ping(ctx, db)
		},
	}
}
