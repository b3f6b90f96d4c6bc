package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

// PGError is a driver-neutral view of a postgres server error.
type PGError struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// AsPGError unwraps err looking for a pgx or lib/pq server error.
func AsPGError(err error) (PGError, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGError{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGError{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGError{}, false
}

// IsUniqueViolation reports whether err is a unique constraint violation from postgres or sqlite.
// A non-empty constraintName must match the violated constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	matches := func(name string) bool {
		return constraintName == "" || strings.Contains(name, constraintName)
	}

	if pg, ok := AsPGError(err); ok {
		return pg.Code == uniqueViolationCode && (constraintName == "" || pg.Constraint == constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return matches(err.Error())
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed") {
		return matches(msg)
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
