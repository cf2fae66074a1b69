package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Business errors shared by every service. Controllers map them to HTTP statuses.
var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation failed")
	ErrPricingNotConfigured = errors.New("pricing not configured")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrForbiddenTransition  = errors.New("status transition not permitted for this caller")
	ErrNotStaff             = errors.New("caller is not on the staff allow-list")
	ErrRoleNotAllowed       = errors.New("staff role is not allowed")
)

// ValidationError names the offending input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError describes which unique key was violated
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// notFoundOr converts gorm's record-not-found into a NotFoundError for entity
func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity}
	}
	return err
}

// isUniqueViolation recognises translated driver errors and SQLite's untranslated message
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
