package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHandleDatabaseError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, HandleDatabaseError(nil, "reservation_get"))
	})

	t.Run("NoRows", func(t *testing.T) {
		err := HandleDatabaseError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "reservation_get")
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "reservation_get")
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		err := HandleDatabaseError(&pgconn.PgError{Code: PgErrorCodeUniqueViolation, Message: "dup key"}, "reservation_create")
		assert.True(t, IsDuplicate(err))
		assert.False(t, IsNotFound(err))
	})

	t.Run("CheckViolation", func(t *testing.T) {
		err := HandleDatabaseError(&pgconn.PgError{Code: PgErrorCodeCheckViolation, Message: "reservations_dates_chk"}, "reservation_create")
		assert.True(t, stderrors.Is(err, ErrConstraint))
	})

	t.Run("Deadlock", func(t *testing.T) {
		err := HandleDatabaseError(&pgconn.PgError{Code: PgErrorCodeDeadlockDetected}, "reservation_update")
		assert.True(t, IsConcurrentOperationError(err))
	})

	t.Run("LockMessage", func(t *testing.T) {
		err := HandleDatabaseError(stderrors.New("could not obtain lock on row"), "reservation_update")
		assert.True(t, IsConcurrentOperationError(err))
	})

	t.Run("UnknownPgCode", func(t *testing.T) {
		err := HandleDatabaseError(&pgconn.PgError{Code: "XX000", Message: "internal"}, "reservation_list")
		assert.EqualError(t, err, "database error during reservation_list: internal")
	})

	t.Run("Other", func(t *testing.T) {
		base := stderrors.New("connection reset")
		err := HandleDatabaseError(base, "reservation_list")
		assert.True(t, stderrors.Is(err, base))
	})
}
