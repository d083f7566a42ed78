package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	codeInvalidTextRepresentation = "22P02"
	codeForeignKeyViolation       = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isInvalidText reports Postgres rejecting a malformed literal, such as an id
// that is not a UUID.
func isInvalidText(err error) bool {
	return pgCode(err) == codeInvalidTextRepresentation
}

// isForeignKeyViolation reports a reference to a missing row.
func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
