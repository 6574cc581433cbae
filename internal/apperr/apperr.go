// Package apperr carries the error taxonomy shared by the export, reconciliation
// and conversion code, so the HTTP layer can map failures to status codes
// without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a coded application error. Code is stable and machine readable,
// Message is for humans, Details carries values the caller may display.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a detail value and returns the same error
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New builds a coded error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a validation error
func Validation(code, message string) *Error { return New(KindValidation, code, message) }

// NotFound builds a not-found error
func NotFound(code, message string) *Error { return New(KindNotFound, code, message) }

// Wrap builds an internal error around a cause
func Wrap(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: err.Error(), Err: err}
}

// As extracts the *Error from a chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of a coded error, or fallback
func CodeOf(err error, fallback string) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return fallback
}

// KindOf returns the kind of a coded error; uncoded errors are internal
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
