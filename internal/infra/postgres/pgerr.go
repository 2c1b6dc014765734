package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// PostgreSQL error codes for constraint classes the service translates to
// INVARIANT_VIOLATION. Everything else is a repository failure.
const (
	pgCodeNotNullViolation    = "23502"
	pgCodeForeignKeyViolation = "23503"
	pgCodeUniqueViolation     = "23505"
	pgCodeCheckViolation      = "23514"
	pgCodeNumericOutOfRange   = "22003"
	pgCodeInvalidTextRepr     = "22P02"
)

// translateError maps a database error onto the service error taxonomy. Known
// constraint classes become invariant violations with a generic message; the
// database's own text never crosses the boundary. Anything else is wrapped as
// a repository error with the cause attached for logs.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeForeignKeyViolation:
			return apperr.WrapInvariantViolation(err, "referenced row does not exist")
		case pgCodeUniqueViolation:
			return apperr.WrapInvariantViolation(err, "duplicate value violates a uniqueness rule")
		case pgCodeCheckViolation:
			return apperr.WrapInvariantViolation(err, "value violates a check constraint")
		case pgCodeNotNullViolation:
			return apperr.WrapInvariantViolation(err, "required value is missing")
		case pgCodeNumericOutOfRange:
			return apperr.WrapInvariantViolation(err, "numeric value out of range")
		case pgCodeInvalidTextRepr:
			return apperr.WrapInvariantViolation(err, "malformed value")
		}
	}

	return apperr.RepositoryError(err)
}
