package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/diewo77/go-rentals/validation"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestValidationErrorMessageAndRange(t *testing.T) {
	err := invalid(validation.Violations{"b": "required", "a": "out_of_range"})
	if got := err.Error(); got != "validation failed: a: out_of_range, b: required" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("expected ErrOutOfRange match")
	}
	if errors.Is(invalid(validation.Violations{"a": "required"}), ErrOutOfRange) {
		t.Error("required violation must not match ErrOutOfRange")
	}
	if invalid(validation.Violations{}) != nil {
		t.Error("empty violations must yield nil")
	}
}

func TestTranslateWrite(t *testing.T) {
	dup := &UniquenessError{Entity: "tenant", Field: "email", Value: "x"}
	ref := &ReferenceError{Entity: "unit"}

	if translateWrite(nil, "op", dup, ref) != nil {
		t.Error("nil stays nil")
	}
	if got := translateWrite(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey), "op", dup, ref); got != dup {
		t.Errorf("duplicate key = %v", got)
	}
	if got := translateWrite(gorm.ErrForeignKeyViolated, "op", dup, ref); got != ref {
		t.Errorf("fk violation = %v", got)
	}
	var overlap *OverlapError
	if got := translateWrite(&pgconn.PgError{Code: "23P01"}, "op", nil, nil); !errors.As(got, &overlap) {
		t.Errorf("exclusion violation = %v", got)
	}
	other := errors.New("boom")
	if got := translateWrite(other, "save", dup, ref); !errors.Is(got, other) || got.Error() != "save: boom" {
		t.Errorf("other error = %v", got)
	}
}
