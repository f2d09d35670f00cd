package dberr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodePreconditionFailed Code = "precondition_failed"
	CodeRetryable          Code = "retryable"
	CodeSchema             Code = "schema"
	CodeInvalidInput       Code = "invalid_input"
	CodeInternal           Code = "internal"
)

// Error is a classified database failure.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "database error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (op=%s)", e.Code, e.Op)
	}
	return fmt.Sprintf("%s (op=%s): %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// Classify maps gorm/pgx failures onto a Code. Already classified errors pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	wrap := func(code Code) error { return &Error{Code: code, Op: op, Err: err} }

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return wrap(CodeNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wrap(CodeRetryable)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return wrap(CodeConflict) // unique_violation
		case "23503":
			return wrap(CodePreconditionFailed) // foreign_key_violation
		case "40001", "40P01", "55P03", "57014":
			return wrap(CodeRetryable) // serialization/deadlock/lock_not_available/query_canceled
		case "42P01", "42703", "42704":
			return wrap(CodeSchema) // undefined_table/column/object
		case "22000", "22P02", "22023":
			return wrap(CodeInvalidInput) // data_exception, e.g. vector dimension mismatch
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return wrap(CodeConflict)
	case strings.Contains(msg, "foreign key constraint"):
		return wrap(CodePreconditionFailed)
	case strings.Contains(msg, "no such table"):
		return wrap(CodeSchema)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "temporar"):
		return wrap(CodeRetryable)
	default:
		return wrap(CodeInternal)
	}
}
