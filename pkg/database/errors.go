package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no specific mapping.
func MapPQError(err error) *apperrors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return apperrors.DuplicateKey(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		if strings.Contains(pqErr.Constraint, "batch_id_fkey") {
			return apperrors.BadRequest("cannot delete inventory item with distribution history")
		}
		return apperrors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return apperrors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Invalid text representation (22P02), e.g. a malformed uuid key
	case "22P02":
		return apperrors.NotFound("record")

	default:
		return nil
	}
}

// MapError returns the AppError form of err when one exists, otherwise err.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// IsUniqueViolation reports whether err is a 23505 on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}

// IsInvalidText reports whether err is a 22P02, which a lookup by a
// malformed key raises before any row is read.
func IsInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// mapCheckConstraint maps CHECK constraint names from the inventory schema.
func mapCheckConstraint(pqErr *pq.Error) *apperrors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "current_stock_non_negative"):
		return apperrors.Validation(map[string]string{
			"currentStock": "must not be negative",
		})

	case strings.Contains(constraint, "quantity_supplied_positive"):
		return apperrors.Validation(map[string]string{
			"quantitySupplied": "must be at least 1",
		})

	case strings.Contains(constraint, "low_stock_threshold_non_negative"):
		return apperrors.Validation(map[string]string{
			"lowStockThreshold": "must not be negative",
		})

	case strings.Contains(constraint, "unit_cost_non_negative"):
		return apperrors.Validation(map[string]string{
			"unitCost": "must not be negative",
		})

	case strings.Contains(constraint, "status_valid"):
		return apperrors.Validation(map[string]string{
			"status": "must be one of: active, depleted, expired, damaged",
		})

	case strings.Contains(constraint, "quantity_positive"):
		return apperrors.Validation(map[string]string{
			"quantity": "must be at least 1",
		})

	default:
		return apperrors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	switch {
	case strings.Contains(pqErr.Constraint, "pad_batch_id"):
		return "an inventory item with this batch id already exists"
	case strings.Contains(pqErr.Constraint, "students_pkey"):
		return "a student with this user id already exists"
	default:
		return "a record with these values already exists"
	}
}
