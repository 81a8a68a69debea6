package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// CodeUndefinedTable is the PostgreSQL SQLSTATE for "relation does not exist".
// The in-memory backend reports the same code for unknown tables.
const CodeUndefinedTable = "42P01"

// Error is a store failure carrying a backend code and message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store error %s: %s", e.Code, e.Message)
	}
	return "store error: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUndefinedTable reports whether err indicates a missing backing table.
func IsUndefinedTable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == CodeUndefinedTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == CodeUndefinedTable
	}
	return false
}

// undefinedTable builds the error returned for an unknown table.
func undefinedTable(table string) *Error {
	return &Error{
		Code:    CodeUndefinedTable,
		Message: fmt.Sprintf("relation %q does not exist", table),
	}
}

// translate converts a pgx error into *Error, keeping the original as cause.
func translate(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}
	return &Error{Message: fmt.Sprintf("%s %s: %v", op, table, err), Err: err}
}
