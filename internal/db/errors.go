package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
)

// Violation returns the Postgres constraint name when err is a unique,
// foreign key or exclusion violation.
func Violation(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", "", false
	}
	switch pgErr.Code {
	case codeUniqueViolation, codeForeignKeyViolation, codeExclusionViolation:
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

func IsUniqueViolation(err error, constraint string) bool {
	code, name, ok := Violation(err)
	return ok && code == codeUniqueViolation && name == constraint
}

func IsForeignKeyViolation(err error) bool {
	code, _, ok := Violation(err)
	return ok && code == codeForeignKeyViolation
}

func IsExclusionViolation(err error, constraint string) bool {
	code, name, ok := Violation(err)
	return ok && code == codeExclusionViolation && name == constraint
}
