package retry

import (
	"github.com/8adimka/data-uploader/internal/docstore"
)

// ConfigFromPolicy creates a RetryConfig that retries only throttled requests,
// up to the policy's rate-limit retry budget.
func ConfigFromPolicy(policy docstore.ClientPolicy) RetryConfig {
	return RetryConfig{
		MaxAttempts: policy.MaxRateLimitRetries,
		BaseDelay:   policy.RetryBaseDelay,
		MaxDelay:    policy.RetryMaxDelay,
		Retryable:   docstore.IsRateLimited,
		RetryAfter:  docstore.RetryAfter,
	}
}
