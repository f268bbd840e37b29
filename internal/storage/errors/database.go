package errors

import (
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// PostgreSQL error codes
const (
	PgErrorCodeCheckViolation      = "23514"
	PgErrorCodeUniqueViolation     = "23505"
	PgErrorCodeForeignKeyViolation = "23503"
	PgErrorCodeNotNullViolation    = "23502"
	PgErrorCodeInvalidText         = "22P02"
	PgErrorCodeLockNotAvailable    = "55P03"
	PgErrorCodeSerialization       = "40001"
	PgErrorCodeDeadlockDetected    = "40P01"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate нарушение уникальности
	ErrDuplicate = errors.New("duplicate record")
	// ErrConstraint нарушение ограничения схемы
	ErrConstraint = errors.New("constraint violation")
)

// ConcurrentOperationError represents lock contention or a serialization failure
type ConcurrentOperationError struct {
	Operation string `json:"operation"`
	Resource  string `json:"resource"`
	Message   string `json:"message"`
}

func (e *ConcurrentOperationError) Error() string {
	return e.Message
}

// HandleDatabaseError converts PostgreSQL errors to storage errors
func HandleDatabaseError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "%s", operation)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return handlePostgreSQLError(pgErr, operation)
	}

	if strings.Contains(err.Error(), "could not obtain lock") {
		return &ConcurrentOperationError{
			Operation: operation,
			Resource:  "reservation",
			Message:   "Reservation item is being processed by another transaction. Please retry.",
		}
	}

	return errors.Wrapf(err, "database error during %s", operation)
}

// handlePostgreSQLError handles specific PostgreSQL error codes
func handlePostgreSQLError(pgErr *pgconn.PgError, operation string) error {
	switch pgErr.Code {
	case PgErrorCodeUniqueViolation:
		return errors.Wrapf(ErrDuplicate, "%s: %s", operation, pgErr.Message)

	case PgErrorCodeCheckViolation, PgErrorCodeForeignKeyViolation, PgErrorCodeNotNullViolation, PgErrorCodeInvalidText:
		return errors.Wrapf(ErrConstraint, "%s: %s", operation, pgErr.Message)

	case PgErrorCodeLockNotAvailable, PgErrorCodeSerialization, PgErrorCodeDeadlockDetected:
		return &ConcurrentOperationError{
			Operation: operation,
			Resource:  resourceFromConstraint(pgErr.ConstraintName),
			Message:   "Reservation item is locked by another transaction. Please retry.",
		}

	default:
		return errors.Errorf("database error during %s: %s", operation, pgErr.Message)
	}
}

func resourceFromConstraint(constraintName string) string {
	if constraintName == "" {
		return "reservation"
	}
	return constraintName
}

// IsNotFound checks if err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if err is a unique violation
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsConcurrentOperationError checks if error is a concurrent operation error
func IsConcurrentOperationError(err error) bool {
	var concurrentErr *ConcurrentOperationError
	return errors.As(err, &concurrentErr)
}
