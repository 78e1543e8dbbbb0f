package uber

import (
	"context"
	"net/http"
	"time"
)

// RetryConfig bounds retries of read-only upstream calls. Only rate
// limit and 5xx replies are retried; activation requests are never
// retried here because the state machine owns that decision.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig returns the retry policy used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  250 * time.Millisecond,
	}
}

// withRetry runs fn, retrying on 429 and 5xx with linear backoff. fn
// reports the HTTP status it observed (0 for transport errors, which
// are also retried).
func (c *client) withRetry(ctx context.Context, operation string, fn func() (int, error)) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		status, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= c.retryConfig.MaxRetries || !retryable(status) {
			return lastErr
		}

		delay := c.retryConfig.BaseDelay * time.Duration(attempt+1)
		c.logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying upstream call")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
}

func retryable(status int) bool {
	return status == 0 ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}
