// Package errors carries the typed error codes shared by the ledger services,
// the HTTP ops surface and the workers.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeStateConflict        Code = "STATE_CONFLICT"
	CodeInactiveResource     Code = "INACTIVE_RESOURCE"
	CodeNoActivePolicy       Code = "NO_ACTIVE_POLICY"
	CodeInsufficientCoverage Code = "INSUFFICIENT_COVERAGE"
	CodeWarrantyExpired      Code = "WARRANTY_EXPIRED"
	CodeClaimExceedsLimit    Code = "CLAIM_EXCEEDS_LIMIT"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeDependency           Code = "DEPENDENCY_ERROR"
)

// CodeInvalidState is the ledger name for a disallowed claim transition.
const CodeInvalidState = CodeStateConflict

// Metadata describes how a code surfaces to callers.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// Business rule rejections share 422 and always expose their details.
func rule(msg string) Metadata {
	return Metadata{HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: msg, DetailsAllowed: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:           {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeNotFound:             {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:             {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict:        rule("state transition disallowed"),
	CodeInactiveResource:     rule("resource is not active"),
	CodeNoActivePolicy:       rule("no active policy for category"),
	CodeInsufficientCoverage: rule("insufficient coverage"),
	CodeWarrantyExpired:      rule("warranty expired"),
	CodeClaimExceedsLimit:    rule("claim exceeds warranty limit"),
	CodeInternal:             {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:           {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and caller-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code reports CodeInternal for a nil receiver.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Retryable reports whether retrying the failed call could succeed.
func Retryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.code).Retryable
}
