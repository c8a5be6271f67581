package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"tradeflow/internal/core/apperror"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError turns constraint failures into CONSTRAINT_VIOLATION app errors so
// the domain can recover from them. Other errors are returned as is.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var kind apperror.ConstraintKind
	switch pgErr.Code {
	case pgUniqueViolation:
		kind = apperror.ConstraintUnique
	case pgForeignKeyViolation:
		kind = apperror.ConstraintForeignKey
	default:
		return err
	}

	return apperror.NewConstraintViolation(kind, pgErr.ConstraintName, pgErr.TableName, relationship(kind, pgErr)).
		WithCause(err)
}

func relationship(kind apperror.ConstraintKind, pgErr *pgconn.PgError) string {
	if kind == apperror.ConstraintForeignKey {
		return fmt.Sprintf("%s references a row that does not exist", pgErr.TableName)
	}
	return fmt.Sprintf("%s already contains this value", pgErr.TableName)
}
