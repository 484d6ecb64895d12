package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION_ERROR"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindAuth        ErrorKind = "AUTH_ERROR"
	KindUpstream    ErrorKind = "UPSTREAM_ERROR"
	KindUnsupported ErrorKind = "UNSUPPORTED"
	KindConflict    ErrorKind = "CONFLICT"
	KindInternal    ErrorKind = "INTERNAL_ERROR"
)

// AppError represents a classified application error
type AppError struct {
	Kind    ErrorKind
	Message string
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

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s with ID %v not found", resource, id)}
}

func NewAuthError(message string, err error) *AppError {
	return &AppError{Kind: KindAuth, Message: message, Err: err}
}

func NewUnsupportedError(message string) *AppError {
	return &AppError{Kind: KindUnsupported, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// UpstreamError is a non-success response from a platform API. Body holds the
// raw response text for diagnostics.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s. %s", e.Op, e.Body)
	default:
		return fmt.Sprintf("%s (status code: %d)", e.Op, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return KindUpstream
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Transient
	}
	return false
}
