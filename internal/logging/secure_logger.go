package logging

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// SecureLogger provides logging with sensitive data redaction
type SecureLogger struct {
	logger         *slog.Logger
	redactedFields []string
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(logger *slog.Logger) *SecureLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecureLogger{
		logger: logger,
		redactedFields: []string{
			"credential",
			"api_key",
			"password",
			"token",
			"secret",
			"key",
		},
	}
}

// redactSensitive filters out sensitive fields from log arguments
func (sl *SecureLogger) redactSensitive(args []any) []any {
	if len(args) == 0 {
		return args
	}

	if len(args)%2 != 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		switch {
		case sl.shouldRedact(key):
			result[i+1] = "[REDACTED]"
		case strings.Contains(strings.ToLower(key), "endpoint"):
			if s, ok := result[i+1].(string); ok {
				result[i+1] = RedactEndpoint(s)
			}
		}
	}

	return result
}

// shouldRedact checks if a field name indicates sensitive data
func (sl *SecureLogger) shouldRedact(fieldName string) bool {
	fieldName = strings.ToLower(fieldName)

	for _, redacted := range sl.redactedFields {
		if strings.Contains(fieldName, redacted) {
			return true
		}
	}
	return false
}

// Info logs at Info level with sensitive data redaction
func (sl *SecureLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, sl.redactSensitive(args)...)
}

// InfoContext logs at Info level with sensitive data redaction
func (sl *SecureLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	sl.logger.InfoContext(ctx, msg, sl.redactSensitive(args)...)
}

// Error logs at Error level with sensitive data redaction
func (sl *SecureLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, sl.redactSensitive(args)...)
}

// ErrorContext logs at Error level with sensitive data redaction
func (sl *SecureLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	sl.logger.ErrorContext(ctx, msg, sl.redactSensitive(args)...)
}

// Warn logs at Warn level with sensitive data redaction
func (sl *SecureLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, sl.redactSensitive(args)...)
}

// Debug logs at Debug level with sensitive data redaction
func (sl *SecureLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, sl.redactSensitive(args)...)
}

// RedactEndpoint masks the password of a connection string so it can be logged.
// Values that do not parse as URLs are returned unchanged.
func RedactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.User == nil {
		return endpoint
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
