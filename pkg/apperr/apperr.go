// Package apperr defines the machine-readable error taxonomy of the ledger.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	Validation             Kind = "validation"
	NotFound               Kind = "not_found"
	InvalidStateTransition Kind = "invalid_state_transition"
	Encoding               Kind = "encoding"
	StorageFailure         Kind = "storage_failure"
	Internal               Kind = "internal"
)

// Error carries a kind, a caller-safe message and optional field details.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationErr reports caller-fixable input.
func ValidationErr(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

// NotFoundErr reports an unknown entity.
func NotFoundErr(msg string) *Error {
	return &Error{Kind: NotFound, Message: msg}
}

// TransitionErr reports a forbidden state change.
func TransitionErr(msg string) *Error {
	return &Error{Kind: InvalidStateTransition, Message: msg}
}

// EncodingErr reports a payload that cannot be encoded.
func EncodingErr(msg string, err error) *Error {
	return &Error{Kind: Encoding, Message: msg, Err: err}
}

// StorageErr wraps a failure of the underlying store. Callers may retry with backoff.
func StorageErr(msg string, err error) *Error {
	return &Error{Kind: StorageFailure, Message: msg, Err: err}
}

// As extracts *Error from a chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}

	return nil, false
}

// KindOf returns the kind of err, Internal for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}

	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns text that is safe to show outside the service.
func PublicMessage(err error) string {
	ae, ok := As(err)
	if !ok {
		return "internal error"
	}
	switch ae.Kind {
	case StorageFailure:
		return "storage unavailable, retry later"
	case Internal:
		return "internal error"
	default:
		return ae.Message
	}
}

// HTTPStatus maps an error to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation, Encoding:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case InvalidStateTransition:
		return http.StatusConflict
	case StorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
