package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeAccessExpired   Code = "ACCESS_EXPIRED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeIdempotency     Code = "IDEMPOTENCY_KEY_REUSED"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeRateLimit       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:      {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:    {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:       {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeAccessExpired:   {HTTPStatus: http.StatusForbidden, PublicMessage: "app access expired", DetailsAllowed: true},
	CodeNotFound:        {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:        {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeIdempotency:     {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodePayloadTooLarge: {HTTPStatus: http.StatusRequestEntityTooLarge, PublicMessage: "payload too large", DetailsAllowed: true},
	CodeRateLimit:       {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:        {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:      {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every service returns across a package boundary.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message before building the error.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
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
	if e == nil {
		return nil
	}
	e.details = details
	return e
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

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Chain lists every error in err's unwrap chain as "<type>: <message>", outermost first.
func Chain(err error) []string {
	var out []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		out = append(out, fmt.Sprintf("%T: %v", e, e))
	}
	return out
}
