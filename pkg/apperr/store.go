package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// FromStore 将持久层错误归类
// pgx.ErrNoRows -> NotFound, 唯一约束 -> Conflict, 外键/检查约束 -> Validation, 其它 -> Unavailable
func FromStore(err error, entity string, id int) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &Error{Kind: KindConflict, Message: fmt.Sprintf("%s already exists", entity), Err: err}
		case pgForeignKeyViolation:
			return &Error{
				Kind:    KindValidation,
				Message: fmt.Sprintf("%s references a missing record", entity),
				Reason:  ReasonInvalidValue,
				Fields:  []string{pgErr.ColumnName},
				Err:     err,
			}
		case pgCheckViolation:
			return &Error{
				Kind:    KindValidation,
				Message: fmt.Sprintf("%s violates constraint %s", entity, pgErr.ConstraintName),
				Reason:  ReasonInvalidValue,
				Err:     err,
			}
		}
	}

	return Unavailable(fmt.Sprintf("%s store failure", entity), err)
}
