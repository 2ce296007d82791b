package docstore

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/8adimka/data-uploader/internal/errorsx"
)

// Server error codes the provisioning flow inspects.
const (
	codeAuthenticationFailed = 18
	codeTooManyRequests      = 16500
)

var retryAfterPattern = regexp.MustCompile(`RetryAfterMs=(\d+)`)

// IsRateLimited reports whether the service throttled the request.
func IsRateLimited(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeTooManyRequests) ||
		se.HasErrorMessage("Request rate is large") ||
		se.HasErrorMessage("TooManyRequests")
}

// RetryAfter returns the wait the service asked for on a throttled request, or zero.
func RetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryAfterPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	ms, convErr := strconv.Atoi(m[1])
	if convErr != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// IsDuplicateKey reports a write that lost to a document with the same _id.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// Classify sorts a driver error into ConnectionError or ServiceError without altering it.
// Errors already classified and caller cancellations are returned as is.
func Classify(err error, endpoint, database string) error {
	if err == nil {
		return nil
	}

	var connErr *errorsx.ConnectionError
	var svcErr *errorsx.ServiceError
	if errors.As(err, &connErr) || errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return &errorsx.ConnectionError{Endpoint: endpoint, Err: err}
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(codeAuthenticationFailed) {
			return &errorsx.ConnectionError{Endpoint: endpoint, Err: err}
		}
		return &errorsx.ServiceError{Database: database, Err: err}
	}

	// URI parsing, server selection and handshake failures never reach the server.
	return &errorsx.ConnectionError{Endpoint: endpoint, Err: err}
}
