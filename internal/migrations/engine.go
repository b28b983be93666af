// Package migrations moves the SQLite schema forward through an ordered,
// append-only registry of versioned steps.
package migrations

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/logging"
)

var (
	ErrInvalidRegistry = errors.New("invalid migration registry")
	ErrDowngrade       = errors.New("downgrade is not supported")
	ErrUnknownVersion  = errors.New("unknown migration version")
)

// Migration is one forward step of the schema. Up runs inside a transaction
// that also advances the version marker.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *gorm.DB) error
}

// Result describes what a run of the engine did.
type Result struct {
	From    int
	To      int
	Applied []int
}

type Runner struct {
	db         *gorm.DB
	migrations []Migration
	logger     zerolog.Logger
}

// NewRunner validates the registry and returns a runner for it. Versions
// must be positive and strictly increasing; gaps are allowed.
func NewRunner(db *gorm.DB, migrations []Migration) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := validateRegistry(migrations); err != nil {
		return nil, err
	}
	return &Runner{
		db:         db,
		migrations: migrations,
		logger:     logging.For("migrations"),
	}, nil
}

func validateRegistry(migrations []Migration) error {
	prev := 0
	for i, m := range migrations {
		switch {
		case m.Version <= 0:
			return errors.Wrapf(ErrInvalidRegistry, "entry %d: version %d must be positive", i, m.Version)
		case m.Version <= prev:
			return errors.Wrapf(ErrInvalidRegistry, "entry %d: version %d does not follow %d", i, m.Version, prev)
		case m.Description == "":
			return errors.Wrapf(ErrInvalidRegistry, "version %d: description is empty", m.Version)
		case m.Up == nil:
			return errors.Wrapf(ErrInvalidRegistry, "version %d: no forward step", m.Version)
		}
		prev = m.Version
	}
	return nil
}

// LatestVersion is the highest registered version, or 0 for an empty registry.
func (r *Runner) LatestVersion() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// CurrentVersion reads the marker. A store that was never migrated is at 0.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	if err := r.ensureMarker(ctx); err != nil {
		return 0, err
	}
	return readVersion(r.db.WithContext(ctx))
}

// Apply brings the store to the latest registered version.
func (r *Runner) Apply(ctx context.Context) (Result, error) {
	return r.migrate(ctx, r.LatestVersion())
}

// MigrateTo applies registered migrations up to and including target.
func (r *Runner) MigrateTo(ctx context.Context, target int) (Result, error) {
	if target != 0 && r.indexOf(target) < 0 {
		return Result{}, errors.Wrapf(ErrUnknownVersion, "version %d", target)
	}
	return r.migrate(ctx, target)
}

func (r *Runner) migrate(ctx context.Context, target int) (Result, error) {
	if err := r.ensureMarker(ctx); err != nil {
		return Result{}, &domain.SchemaError{Op: "init", Err: err}
	}

	current, err := readVersion(r.db.WithContext(ctx))
	if err != nil {
		return Result{}, &domain.SchemaError{Op: "read", Err: err}
	}
	result := Result{From: current, To: current}

	if current > r.LatestVersion() {
		return result, &domain.SchemaError{
			Version: current,
			Op:      "check",
			Err:     fmt.Errorf("store is newer than this build (latest known version %d)", r.LatestVersion()),
		}
	}
	if target < current {
		return result, errors.Wrapf(ErrDowngrade, "store is at %d, requested %d", current, target)
	}

	for _, m := range r.migrations {
		if m.Version <= current || m.Version > target {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, &domain.SchemaError{Version: m.Version, Op: "apply", Err: err}
		}

		r.logger.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")
		if err := r.applyOne(ctx, m); err != nil {
			r.logger.Error().Err(err).Int("version", m.Version).Msg("migration failed, rolled back")
			return result, &domain.SchemaError{Version: m.Version, Op: "apply", Err: err}
		}
		result.To = m.Version
		result.Applied = append(result.Applied, m.Version)
	}

	if len(result.Applied) > 0 {
		r.logger.Info().Int("from", result.From).Int("to", result.To).Msg("schema migrated")
	}
	return result, nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
		// The guard makes a concurrent or out-of-order apply fail instead of
		// moving the marker backwards.
		res := tx.Exec("UPDATE schema_version SET version = ? WHERE id = 1 AND version < ?", m.Version, m.Version)
		if res.Error != nil {
			return errors.Wrap(res.Error, "advance marker")
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("marker already at or past version %d", m.Version)
		}
		if err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		).Error; err != nil {
			return errors.Wrap(err, "record migration")
		}
		return nil
	})
}

func (r *Runner) indexOf(version int) int {
	for i, m := range r.migrations {
		if m.Version == version {
			return i
		}
	}
	return -1
}

func (r *Runner) ensureMarker(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				version INTEGER NOT NULL
			)`,
			`INSERT OR IGNORE INTO schema_version (id, version) VALUES (1, 0)`,
			`CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				description TEXT NOT NULL,
				applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return errors.Wrap(err, "create schema marker")
			}
		}
		return nil
	})
}

func readVersion(db *gorm.DB) (int, error) {
	var version int
	if err := db.Raw("SELECT version FROM schema_version WHERE id = 1").Scan(&version).Error; err != nil {
		return 0, errors.Wrap(err, "read schema version")
	}
	return version, nil
}

// AppliedMigration is a row of the forensic migration log.
type AppliedMigration struct {
	Version     int    `gorm:"column:version"`
	Description string `gorm:"column:description"`
	AppliedAt   string `gorm:"column:applied_at"`
}

// Log returns the migration log in version order.
func (r *Runner) Log(ctx context.Context) ([]AppliedMigration, error) {
	if err := r.ensureMarker(ctx); err != nil {
		return nil, err
	}
	var rows []AppliedMigration
	if err := r.db.WithContext(ctx).
		Raw("SELECT version, description, CAST(applied_at AS TEXT) AS applied_at FROM schema_migrations ORDER BY version").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "read migration log")
	}
	return rows, nil
}
