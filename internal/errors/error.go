// Package errors provides the operational error taxonomy shared by the catalog pipeline.
//
// An operational error carries a message, a status class (Kind) and an optional
// ordered list of details. Transport layers map Kind to protocol status codes;
// nothing in this package knows about HTTP.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the status class of an operational error.
// The zero value is KindInternal, so an error without an explicit class is treated as internal.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyRequests
	KindPayloadTooLarge
)

// String returns a human-readable name of the status class.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindTooManyRequests:
		return "too many requests"
	case KindPayloadTooLarge:
		return "payload too large"
	default:
		return "internal"
	}
}

// AppError is an operational error: an expected failure that is rendered to the client as is.
type AppError struct {
	Message string
	Kind    Kind
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a generic operational error with an explicit status class.
func New(message string, kind Kind) *AppError {
	return &AppError{Message: message, Kind: kind}
}

// Wrap creates an operational error that keeps err as its cause.
func Wrap(err error, message string, kind Kind) *AppError {
	return &AppError{Message: message, Kind: kind, Err: err}
}

// NotFound creates an error for a missing resource, e.g. NotFound("Product") reads "Product not found".
func NotFound(resource string) *AppError {
	if resource == "" {
		resource = "Resource"
	}
	return New(resource+" not found", KindNotFound)
}

// Validation creates a bad request error carrying every violation found.
func Validation(message string, details []string) *AppError {
	return &AppError{Message: message, Kind: KindBadRequest, Details: details}
}

// BadRequest creates a bad request error without details.
func BadRequest(message string) *AppError {
	return New(message, KindBadRequest)
}

// HasDetails reports whether the error carries a violation list.
func (e *AppError) HasDetails() bool {
	return len(e.Details) > 0
}

// ErrProductNotFound is returned by the catalog when no product has the requested id.
var ErrProductNotFound = NotFound("Product")

// Faults raised by persistence backends. The in-memory store only ever raises ErrDuplicateKey.
var (
	ErrMalformedID  = errors.New("malformed id")
	ErrDuplicateKey = errors.New("duplicate key")
)

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Normalize converts err into an operational error.
// Persistence faults become their client-facing equivalents and unknown errors become internal errors.
func Normalize(err error) *AppError {
	switch {
	case errors.Is(err, ErrMalformedID):
		return Wrap(err, "Resource not found", KindNotFound)
	case errors.Is(err, ErrDuplicateKey):
		return Wrap(err, "Duplicate field value entered", KindBadRequest)
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, "Server Error", KindInternal)
}
