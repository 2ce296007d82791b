package errorsx

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the application
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timeout")
	ErrUnavailable  = errors.New("service unavailable")

	// ErrConnection marks failures to reach or authenticate against the document database.
	ErrConnection = errors.New("document database connection failed")
	// ErrService marks requests the document database rejected.
	ErrService = errors.New("document database rejected the request")
	// ErrRateLimited marks requests still throttled after the retry budget was spent.
	ErrRateLimited = errors.New("request rate limited")
)

// ConnectionError reports a bad endpoint, a bad credential or an unreachable service.
// The driver error is preserved unchanged as the wrapped error.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("%s: %v", ErrConnection, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrConnection, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ServiceError reports a request the remote service rejected, including throttling
// that outlasted the retry budget.
type ServiceError struct {
	Database string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s (database %q): %v", ErrService, e.Database, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// Wrap wraps an error with additional context message
// Returns nil if the error is nil
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message
// Returns nil if the error is nil
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an internal error to the status code the HTTP surface answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrConnection), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConnection checks if an error is a document database connection error
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsService checks if an error is a document database service error
func IsService(err error) bool {
	return errors.Is(err, ErrService)
}

// IsRateLimited checks if an error is a throttling error that exhausted its retries
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
