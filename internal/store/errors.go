package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error classes surfaced to the service layer so store-level
// constraint failures can be reported as validation-equivalent errors
// instead of crashing the request.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
