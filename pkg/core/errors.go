package core

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Operations wrap backend failures into one of these
// so callers can branch with errors.Is regardless of the engine binding.
var (
	// ErrNotFound indicates a required single-row result returned zero rows.
	ErrNotFound = errors.New("record not found")

	// ErrIntegrity indicates a backend constraint violation (unique,
	// primary key, foreign key, not null, check).
	ErrIntegrity = errors.New("integrity constraint violated")

	// ErrValidation indicates a missing or invalid key, or a write value
	// violating an active filter predicate. Raised before the backend is
	// reached.
	ErrValidation = errors.New("validation failed")

	// ErrSchemaMismatch indicates a referenced column or table is absent
	// from the handle metadata.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrReadOnly indicates a mutating call on a view handle.
	ErrReadOnly = errors.New("view is read-only")

	// ErrConnection indicates the engine binding is unreachable.
	ErrConnection = errors.New("connection failure")
)

// Constraint kinds reported on IntegrityError.
const (
	ConstraintUnique     = "unique"
	ConstraintPrimaryKey = "primary_key"
	ConstraintForeignKey = "foreign_key"
	ConstraintNotNull    = "not_null"
	ConstraintCheck      = "check"
)

// NotFoundError carries table and filter context for a missing row.
type NotFoundError struct {
	Table   string
	Filters map[string]any
}

func (e *NotFoundError) Error() string {
	if len(e.Filters) == 0 {
		return fmt.Sprintf("table %q: record not found", e.Table)
	}
	return fmt.Sprintf("table %q: record matching %v not found", e.Table, e.Filters)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IntegrityError carries the violated constraint kind and the underlying
// engine error.
type IntegrityError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("table %q: %s constraint violated: %v", e.Table, e.Constraint, e.Err)
	}
	return fmt.Sprintf("table %q: integrity constraint violated: %v", e.Table, e.Err)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

func (e *IntegrityError) Unwrap() error { return e.Err }

// ValidationError reports input rejected before reaching the backend.
type ValidationError struct {
	Table string
	Field string
	Value any
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("table %q: %s", e.Table, e.Msg)
	}
	return e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SchemaError reports a column or table missing from handle metadata.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %q has no column %q", e.Table, e.Column)
	}
	return fmt.Sprintf("table %q not found", e.Table)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchemaMismatch }

// ReadOnlyError reports a mutating call on a view handle.
type ReadOnlyError struct {
	View string
	Op   string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("view %q: %s not permitted on a read-only view", e.View, e.Op)
}

func (e *ReadOnlyError) Is(target error) bool { return target == ErrReadOnly }

// ConnectionError reports an unreachable engine binding.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database %q unreachable: %v", e.Target, e.Err)
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Err }
