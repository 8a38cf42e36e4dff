package voyage

import (
	"context"
	"fmt"
	"time"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// RetryConfig bounds the retry loop around Voyage API calls.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: base * 2^(attempt-1).
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the standard policy: three attempts with
// 1 s and 2 s waits between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
	}
}

// withRetry runs fn until it succeeds, fails permanently, or attempts run
// out. Only errors the errors package classifies as retryable (5xx,
// transport failures, 429) trigger another attempt; everything else
// escapes on first occurrence.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
