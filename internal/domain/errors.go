package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInvalidState        = errors.New("invalid state")
	ErrValidation          = errors.New("validation failed")
	ErrNoEligibleModel     = errors.New("no eligible model")
	ErrSchema              = errors.New("schema error")
)

// Typed errors carrying detail for the caller.
type (
	// NotFoundError indicates an operation referenced a nonexistent id
	NotFoundError struct {
		Entity string
		ID     string
	}

	// ConstraintError indicates a write was rejected because it would break
	// a relational or uniqueness rule
	ConstraintError struct {
		Constraint string
		Message    string
	}

	// InvalidStateError indicates the operation is not legal for the current
	// state of the entity
	InvalidStateError struct {
		Message string
	}

	// ValidationError indicates input failed validation rules
	ValidationError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Constraint, e.Message)
}

func (e *InvalidStateError) Error() string { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }

func (e *NotFoundError) Is(target error) bool      { return target == ErrNotFound }
func (e *ConstraintError) Is(target error) bool    { return target == ErrConstraintViolation }
func (e *InvalidStateError) Is(target error) bool  { return target == ErrInvalidState }
func (e *ValidationError) Is(target error) bool    { return target == ErrValidation }

// NotFound builds a NotFoundError for the given entity and id.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Constraint builds a ConstraintError.
func Constraint(constraint, format string, args ...any) error {
	return &ConstraintError{Constraint: constraint, Message: fmt.Sprintf(format, args...)}
}

// InvalidState builds an InvalidStateError.
func InvalidState(format string, args ...any) error {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

// Validation wraps a validation failure so it matches ErrValidation.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Message: err.Error()}
}

// SchemaError is fatal: either a migration failed and was rolled back, or the
// store was written by a newer build. The store must not be used.
type SchemaError struct {
	Version int
	Op      string
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("schema %s (version %d): %v", e.Op, e.Version, e.Err)
	}
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
