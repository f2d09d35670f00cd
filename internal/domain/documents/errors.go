package documents

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindInvalidOwner ErrorKind = "invalid_owner"
	KindFetch        ErrorKind = "fetch"
	KindExtraction   ErrorKind = "extraction"
	KindEmbedding    ErrorKind = "embedding"
	KindPersistence  ErrorKind = "persistence"
	KindRetrieval    ErrorKind = "retrieval"
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
)

// Error is the error type surfaced by ingestion and retrieval.
// StatusCode is only set for fetch failures that got an HTTP response.
type Error struct {
	Kind       ErrorKind
	Op         string
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "document error"
	}
	msg := fmt.Sprintf("%s failed (op=%s", e.Kind, e.Op)
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatus maps the kind onto the status an API caller should see.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidOwner, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind ErrorKind, op, code string, err error) *Error {
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

func InvalidOwnerError(op string, err error) *Error {
	return newErr(KindInvalidOwner, op, "unknown_owner", err)
}

// FetchStatusError is a fetch that reached the server and got a non-2xx answer.
func FetchStatusError(op string, status int, err error) *Error {
	e := newErr(KindFetch, op, "http_status", err)
	e.StatusCode = status
	return e
}

// FetchTransportError is a fetch that never got a response.
func FetchTransportError(op string, err error) *Error {
	return newErr(KindFetch, op, "transport", err)
}

func ExtractionError(op, code string, err error) *Error {
	return newErr(KindExtraction, op, code, err)
}

func EmbeddingError(op, code string, err error) *Error {
	return newErr(KindEmbedding, op, code, err)
}

func PersistenceError(op string, err error) *Error {
	return newErr(KindPersistence, op, "", err)
}

func RetrievalError(op, code string, err error) *Error {
	return newErr(KindRetrieval, op, code, err)
}

func ValidationError(op string, err error) *Error {
	return newErr(KindValidation, op, "invalid_input", err)
}

func NotFoundError(op string, err error) *Error {
	return newErr(KindNotFound, op, "not_found", err)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
