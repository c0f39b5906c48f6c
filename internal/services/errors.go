package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/validation"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the entity being operated on does not exist.
	ErrNotFound = errors.New("not_found")
	// ErrOutOfRange matches a ValidationError holding an out-of-range field.
	ErrOutOfRange = errors.New("out_of_range")
)

// ValidationError reports field constraint failures keyed by field name.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e.Violations[f]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is lets callers test errors.Is(err, ErrOutOfRange) for range failures.
func (e *ValidationError) Is(target error) bool {
	if target != ErrOutOfRange {
		return false
	}
	for _, msg := range e.Violations {
		if msg == "out_of_range" {
			return true
		}
	}
	return false
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// OverlapError reports the active lease whose dates collide with the
// candidate. LeaseID is zero when the conflict was caught by the database
// constraint rather than the pre-check.
type OverlapError struct {
	LeaseID uint
	Start   datatypes.Date
	End     *datatypes.Date
}

func (e *OverlapError) Error() string {
	if e.LeaseID == 0 {
		return "lease overlaps an existing active lease on this unit"
	}
	return fmt.Sprintf("lease overlaps active lease %d running from %s to %s",
		e.LeaseID, models.FormatDay(e.Start), models.FormatDayPtr(e.End))
}

// UniquenessError reports a duplicate natural key.
type UniquenessError struct {
	Entity string
	Field  string
	Value  string
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// ReferenceError reports a dangling reference to another entity.
type ReferenceError struct {
	Entity string
	ID     uint
}

func (e *ReferenceError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("referenced %s does not exist", e.Entity)
	}
	return fmt.Sprintf("referenced %s %d does not exist", e.Entity, e.ID)
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// pgExclusionViolation is SQLSTATE exclusion_violation.
const pgExclusionViolation = "23P01"

// translateWrite maps driver errors that slipped past the pre-checks to
// domain errors. dup describes the key that a unique violation refers to.
func translateWrite(err error, op string, dup *UniquenessError, ref *ReferenceError) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey) && dup != nil:
		return dup
	case errors.Is(err, gorm.ErrForeignKeyViolated) && ref != nil:
		return ref
	case errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation:
		return &OverlapError{}
	}
	return fmt.Errorf("%s: %w", op, err)
}
