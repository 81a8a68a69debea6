package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/hwlog/internal/report"
	"github.com/JonMunkholm/hwlog/internal/store"
)

// Kind classifies an operation failure for presentation.
type Kind string

const (
	// KindValidation: a required field is missing. No store call was made.
	KindValidation Kind = "validation"
	// KindMissingTable: the store reports the records table does not exist.
	KindMissingTable Kind = "missing_table"
	// KindConnectivity: any other store failure.
	KindConnectivity Kind = "connectivity"
	// KindPermission: the caller's role does not allow the operation.
	KindPermission Kind = "permission"
	// KindNotFound: the record id is not in history.
	KindNotFound Kind = "not_found"
	// KindEmptyExport: the export filter selected nothing.
	KindEmptyExport Kind = "empty_export"
)

// Error is a classified operation failure. Message and Code, when set,
// override the defaults for Kind; Err is the technical cause.
type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Unclassified non-nil errors
// count as connectivity failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case store.IsUndefinedTable(err):
		return KindMissingTable
	case errors.Is(err, report.ErrEmpty):
		return KindEmptyExport
	}
	return KindConnectivity
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func validationError(op, code, message string) error {
	return &Error{Kind: KindValidation, Op: op, Code: code, Message: message}
}

func permissionError(op, message string) error {
	return &Error{Kind: KindPermission, Op: op, Message: message}
}

func notFoundError(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("record %s not found", id)}
}

// storeError classifies a store failure. Cancellation and deadlines stay
// connectivity errors but keep their cause for matching.
func storeError(op string, err error) error {
	if store.IsUndefinedTable(err) {
		return &Error{Kind: KindMissingTable, Op: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindConnectivity, Op: op, Code: "DB004", Message: "O banco de dados não respondeu a tempo.", Err: err}
	}
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

// Forbidden returns a permission error for checks made outside the service,
// such as switching a form to a mode the caller may not use.
func Forbidden(op, message string) error {
	return permissionError(op, message)
}

// Invalid returns a validation error for input rejected outside the service.
func Invalid(op, code, message string) error {
	return validationError(op, code, message)
}
