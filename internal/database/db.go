package database

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError converts driver errors into the model error taxonomy.
// Missing rows become models.ErrNotFound; everything else is wrapped in a
// *models.PersistenceError, which matches models.ErrConflict for unique
// violations and models.ErrInvalidArgument for FK and NOT NULL violations.
func MapPostgresError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &models.PersistenceError{Op: op, Err: joinCause(models.ErrConflict, pgErr)}
		case "23503", "23502", "23514": // foreign_key, not_null, check
			return &models.PersistenceError{Op: op, Err: joinCause(models.ErrInvalidArgument, pgErr)}
		}
	}

	return &models.PersistenceError{Op: op, Err: err}
}

func joinCause(kind error, pgErr *pgconn.PgError) error {
	return fmt.Errorf("%w: %s", kind, pgErr.ConstraintName)
}
