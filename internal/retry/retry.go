package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrRetriesExhausted is joined into the error returned once every retry has been spent.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts int           // Maximum number of retries after the first call (default: 3)
	BaseDelay   time.Duration // Base delay between retries (default: 500ms)
	MaxDelay    time.Duration // Maximum computed delay between retries (default: 5s)

	// Retryable decides which errors are retried. Nil falls back to isRetryableError.
	Retryable func(error) bool
	// RetryAfter extracts a server supplied wait hint; zero means none.
	RetryAfter func(error) time.Duration
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// Retry executes fn with retry logic
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	_, err := RetryWithResult(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a result with retry logic
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryable := config.Retryable
	if retryable == nil {
		retryable = isRetryableError
	}

	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt == config.MaxAttempts {
			slog.WarnContext(ctx, "Max retry attempts reached, giving up",
				"attempts", config.MaxAttempts+1,
				"error", err)
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, config.MaxAttempts+1, err)
		}

		delay := calculateDelay(config, attempt)
		if config.RetryAfter != nil {
			if hint := config.RetryAfter(err); hint > delay {
				delay = hint
			}
		}

		slog.WarnContext(ctx, "Retryable error encountered, will retry",
			"attempt", attempt+1,
			"max_attempts", config.MaxAttempts+1,
			"delay", delay,
			"error", err)

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, delay, err)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// isRetryableError is the fallback predicate for generic transport errors
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr interface {
		StatusCode() int
	}
	if errors.As(err, &httpErr) {
		statusCode := httpErr.StatusCode()
		return statusCode >= 500 || statusCode == http.StatusTooManyRequests
	}

	return isNetworkError(err)
}

// isNetworkError checks if error is a network-related error
func isNetworkError(err error) bool {
	errorStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection",
		"timeout",
		"network",
		"dial",
		"eof",
		"reset",
		"refused",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errorStr, keyword) {
			return true
		}
	}
	return false
}

// calculateDelay computes the delay for exponential backoff
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := config.BaseDelay * time.Duration(1<<uint(attempt))

	if delay > config.MaxDelay || delay <= 0 {
		delay = config.MaxDelay
	}

	return delay
}
