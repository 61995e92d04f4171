package client

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// retryPolicy bounds the retry loop for read-type calls. Retries are
// sequential; the delay doubles each attempt up to maxDelay.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var defaultRetryPolicy = retryPolicy{
	maxAttempts: 4,
	baseDelay:   500 * time.Millisecond,
	maxDelay:    8 * time.Second,
}

func (c *Client) withRetry(ctx context.Context, name string, op func() error) error {
	var lastErr error
	delay := c.retry.baseDelay

	for attempt := 1; attempt <= c.retry.maxAttempts; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				c.log.Debug().Str("call", name).Int("attempt", attempt).Msg("call succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
		if attempt == c.retry.maxAttempts {
			break
		}

		c.log.Warn().Str("call", name).Int("attempt", attempt).
			Dur("retry_in", delay).Err(err).Msg("transient failure, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled while retrying %s: %w", name, ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > c.retry.maxDelay {
				delay = c.retry.maxDelay
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, c.retry.maxAttempts, lastErr)
}

// transientPatterns match transport-level failures worth retrying. Node
// responses (reverts, malformed payloads) deliberately never match.
var transientPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"broken pipe",
	"i/o timeout",
	"eof",
	"tls handshake",
	"no such host",
	"dial tcp",
	"too many requests",
	"service unavailable",
	"bad gateway",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") {
		return false
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
