package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatvault/internal/domain"
	"chatvault/internal/logging"
	"chatvault/internal/migrations"
)

// Config holds DB configuration
type Config struct {
	Path     string
	LogLevel logger.LogLevel
}

// ParseLogLevel maps a config name to a gorm log level, defaulting to warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Init opens a SQLite DB and migrates it to the latest schema. It returns only
// once the schema is current; a *domain.SchemaError means the store must not
// be used.
func Init(ctx context.Context, cfg Config) (*gorm.DB, error) {
	db, _, err := Open(ctx, cfg)
	return db, err
}

// Open is Init that also reports which migrations ran.
func Open(ctx context.Context, cfg Config) (*gorm.DB, migrations.Result, error) {
	if cfg.Path == "" {
		cfg.Path = GetDefaultDBPath()
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, migrations.Result{}, errors.Wrap(err, "create database dir")
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	gormLogger := logger.New(
		loggerWriter{logger: logging.For("gorm")},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, migrations.Result{}, errors.Wrap(err, "open sqlite")
	}

	// Configure connection pool for SQLite to prevent "database is locked" errors
	sqlDB, err := db.DB()
	if err != nil {
		return nil, migrations.Result{}, errors.Wrap(err, "get sql db")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	result, err := migrate(ctx, db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, result, err
	}

	return db, result, nil
}

// migrate applies the schema history.
func migrate(ctx context.Context, db *gorm.DB) (migrations.Result, error) {
	runner, err := migrations.NewRunner(db, migrations.History())
	if err != nil {
		return migrations.Result{}, &domain.SchemaError{Op: "load", Err: err}
	}
	result, err := runner.Apply(ctx)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			return result, err
		}
		return result, &domain.SchemaError{Op: "apply", Err: err}
	}
	return result, nil
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(ctx context.Context, db *gorm.DB) (int, error) {
	runner, err := migrations.NewRunner(db, migrations.History())
	if err != nil {
		return 0, err
	}
	return runner.CurrentVersion(ctx)
}

// LatestSchemaVersion is the version this build migrates to.
func LatestSchemaVersion() int {
	history := migrations.History()
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Version
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// loggerWriter satisfies gorm's logger.Writer and forwards to zerolog.
type loggerWriter struct {
	logger zerolog.Logger
}

func (w loggerWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
