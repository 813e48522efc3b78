package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on a named constraint. Sqlite errors carry no SQLSTATE and are
// matched on their message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if diag, ok := pkgerrors.Postgres(err); ok {
		return diag.Code == pgUniqueViolation && (constraintName == "" || diag.Constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
