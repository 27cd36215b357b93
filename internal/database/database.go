package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	// pure Go sqlite driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to the database named by rawURL. postgres:// and postgresql://
// URLs use the postgres driver, sqlite:// URLs the embedded sqlite driver.
func Open(rawURL string, logger logrus.FieldLogger) (*gorm.DB, error) {
	dialector, isSQLite, err := dialectorFor(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db conn: %w", err)
		}
		// a single connection keeps :memory: databases shared and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)

		if err := db.Exec(`PRAGMA foreign_keys = ON;`).Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return db, nil
}

func dialectorFor(rawURL string) (gorm.Dialector, bool, error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return postgres.Open(rawURL), false, nil
	case strings.HasPrefix(rawURL, "sqlite:"):
		path := SQLitePath(rawURL)
		if path == "" {
			return nil, false, fmt.Errorf("sqlite database path is empty")
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, false, fmt.Errorf("create db dir: %w", err)
			}
		}
		return sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: path}), true, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedDriver, schemeOf(rawURL))
	}
}

// SQLitePath extracts the file path from sqlite://path, sqlite:///abs/path
// and sqlite::memory: forms.
func SQLitePath(rawURL string) string {
	rest := strings.TrimPrefix(rawURL, "sqlite:")
	return strings.TrimPrefix(rest, "//")
}

func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, ":"); i > 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Ping checks that the underlying connection pool can reach the server.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db conn: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db conn: %w", err)
	}
	return sqlDB.Close()
}

// Migrate creates or updates the tables for the given models.
func Migrate(ctx context.Context, db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate table: %w", err)
	}
	return nil
}
