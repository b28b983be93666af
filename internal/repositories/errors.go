package repositories

import (
	"errors"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"chatvault/internal/domain"
)

// translateError maps gorm and SQLite failures to domain errors. entity and id
// describe what the statement was about.
func translateError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(entity, id)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return domain.Constraint("unique", "%s %q already exists", entity, id)
		case sqlite3.ErrConstraintForeignKey:
			return domain.Constraint("foreign_key", "%s %q references a missing row", entity, id)
		case sqlite3.ErrConstraintCheck:
			return domain.Constraint("check", "%s %q: %s", entity, id, sqlErr.Error())
		case sqlite3.ErrConstraintNotNull:
			return domain.Constraint("not_null", "%s %q: %s", entity, id, sqlErr.Error())
		default:
			return domain.Constraint("constraint", "%s %q: %s", entity, id, sqlErr.Error())
		}
	}
	return err
}

// requireAffected turns a no-op update or delete into a not-found error.
func requireAffected(res *gorm.DB, entity, id string) error {
	if res.Error != nil {
		return translateError(res.Error, entity, id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}
