package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// DatabaseErrorMessage describes SQL store failures.
	DatabaseErrorMessage = "database operation failed"
	// NotFoundMessage describes a missing row or record.
	NotFoundMessage = "record not found"
	// CorruptStateMessage describes a persisted record that failed validation.
	CorruptStateMessage = "persisted state is invalid"
	// InvariantMessage describes a broken state-machine invariant.
	InvariantMessage = "conversation state is inconsistent"
	// OracleErrorMessage describes an LLM oracle failure.
	OracleErrorMessage = "language model unavailable"
)

// Kind classifies an AppError for routing and logging.
type Kind string

const (
	KindSystem      Kind = "system"
	KindOracle      Kind = "oracle"
	KindInvariant   Kind = "invariant"
	KindPersistence Kind = "persistence"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same request later.
func (e *AppError) Retryable() bool {
	return e.Kind == KindPersistence && e.Status != http.StatusNotFound
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindSystem,
		Status:  status,
		Message: message,
	}
}

// Persistence marks err as a storage fault.
func Persistence(err error, message string) *AppError {
	if message == "" {
		message = DatabaseErrorMessage
	}
	return &AppError{Err: err, Kind: KindPersistence, Status: http.StatusServiceUnavailable, Message: message}
}

// Invariant marks a violated state-machine invariant.
func Invariant(format string, args ...any) *AppError {
	return &AppError{
		Err:     fmt.Errorf(format, args...),
		Kind:    KindInvariant,
		Status:  http.StatusInternalServerError,
		Message: InvariantMessage,
	}
}

// Oracle marks an LLM oracle failure.
func Oracle(err error) *AppError {
	return &AppError{Err: err, Kind: KindOracle, Status: http.StatusBadGateway, Message: OracleErrorMessage}
}

// KindOf returns the Kind of the first AppError in err's chain, or KindSystem.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindSystem
}

// IsRetryable reports whether err carries a retryable AppError.
func IsRetryable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}

// StatusOf returns the HTTP status of err, defaulting to 500.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
