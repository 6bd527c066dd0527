package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeEntitlement   Code = "ENTITLEMENT_DENIED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable   = true
	withDetails = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, !retryable, "validation failed", withDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, !retryable, "authentication required", !withDetails},
	CodeForbidden:     {http.StatusForbidden, !retryable, "access denied", !withDetails},
	CodeEntitlement:   {http.StatusForbidden, !retryable, "subscription does not include this feature", withDetails},
	CodeNotFound:      {http.StatusNotFound, !retryable, "resource not found", !withDetails},
	CodeConflict:      {http.StatusConflict, !retryable, "conflict detected", !withDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, !retryable, "state transition disallowed", withDetails},
	CodeIdempotency:   {http.StatusConflict, !retryable, "idempotency key reused", withDetails},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", !withDetails},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", withDetails},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every service returns across package boundaries.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

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

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// WithReason attaches a machine readable reason, rendered as {"reason": ...}.
func (e *Error) WithReason(reason string) *Error {
	return e.WithDetails(map[string]string{"reason": reason})
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As finds the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsCode reports whether err carries the given typed code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// ReasonOf returns the reason attached with WithReason, if any.
func ReasonOf(err error) string {
	if details, ok := As(err).Details().(map[string]string); ok {
		return details["reason"]
	}
	return ""
}
