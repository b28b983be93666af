package migrations

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Step is one unit of work inside a migration.
type Step func(ctx context.Context, tx *gorm.DB) error

// New builds a migration that runs steps in order.
func New(version int, description string, steps ...Step) Migration {
	return Migration{
		Version:     version,
		Description: description,
		Up: func(ctx context.Context, tx *gorm.DB) error {
			for i, step := range steps {
				if err := step(ctx, tx); err != nil {
					return errors.Wrapf(err, "step %d", i+1)
				}
			}
			return nil
		},
	}
}

// SQL builds a migration from plain statements.
func SQL(version int, description string, statements ...string) Migration {
	steps := make([]Step, 0, len(statements))
	for _, stmt := range statements {
		steps = append(steps, Exec(stmt))
	}
	return New(version, description, steps...)
}

// Func builds a migration from a single Go transform.
func Func(version int, description string, fn func(ctx context.Context, tx *gorm.DB) error) Migration {
	return Migration{Version: version, Description: description, Up: fn}
}

func Exec(stmt string, args ...any) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		return tx.Exec(stmt, args...).Error
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identifier.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

// HasColumn reports whether table has the named column.
func HasColumn(tx *gorm.DB, table, column string) (bool, error) {
	if err := checkIdent(table); err != nil {
		return false, err
	}
	var count int64
	if err := tx.Raw(
		fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	).Scan(&count).Error; err != nil {
		return false, errors.Wrapf(err, "inspect %s", table)
	}
	return count > 0, nil
}

// HasTable reports whether a table with the given name exists.
func HasTable(tx *gorm.DB, table string) (bool, error) {
	var count int64
	if err := tx.Raw(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&count).Error; err != nil {
		return false, errors.Wrapf(err, "inspect %s", table)
	}
	return count > 0, nil
}

// AddColumn adds column to table unless it already exists. ddl is the column
// definition after the name, e.g. "BOOLEAN NOT NULL DEFAULT 0".
func AddColumn(table, column, ddl string) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := checkIdent(table, column); err != nil {
			return err
		}
		exists, err := HasColumn(tx, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl)).Error; err != nil {
			return errors.Wrapf(err, "add column %s.%s", table, column)
		}
		return nil
	}
}

// Backfill sets column to expr on rows matching where (all rows when empty).
func Backfill(table, column, expr, where string) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := checkIdent(table, column); err != nil {
			return err
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s = %s", table, column, expr)
		if where != "" {
			stmt += " WHERE " + where
		}
		if err := tx.Exec(stmt).Error; err != nil {
			return errors.Wrapf(err, "backfill %s.%s", table, column)
		}
		return nil
	}
}

// RenameColumn renames from to to. It is a no-op when from is already gone
// and to exists.
func RenameColumn(table, from, to string) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := checkIdent(table, from, to); err != nil {
			return err
		}
		hasFrom, err := HasColumn(tx, table, from)
		if err != nil {
			return err
		}
		hasTo, err := HasColumn(tx, table, to)
		if err != nil {
			return err
		}
		if !hasFrom && hasTo {
			return nil
		}
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, from, to)).Error; err != nil {
			return errors.Wrapf(err, "rename %s.%s", table, from)
		}
		return nil
	}
}

// ArchiveTable copies table into archive as plain data, without constraints,
// and drops the original. The archive is kept for forensics.
func ArchiveTable(table, archive string) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := checkIdent(table, archive); err != nil {
			return err
		}
		exists, err := HasTable(tx, archive)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("archive table %s already exists", archive)
		}
		if err := tx.Exec(fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", archive, table)).Error; err != nil {
			return errors.Wrapf(err, "archive %s", table)
		}
		if err := tx.Exec(fmt.Sprintf("DROP TABLE %s", table)).Error; err != nil {
			return errors.Wrapf(err, "drop %s", table)
		}
		return nil
	}
}
