package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
)

// DefaultRetryDelay is the first wait after a 429 response. Later waits
// back off but never exceed MaxRetryDelay, so a rate-limited call finishes
// well inside a webhook reply window.
const (
	DefaultRetryDelay = 2 * time.Second
	MaxRetryDelay     = 5 * time.Second
)

// RetryRateLimited runs fn up to three times, retrying only when Google
// answers 429 Too Many Requests. Other errors are returned immediately.
func RetryRateLimited(ctx context.Context, delay time.Duration, op string, fn func() error) error {
	return retryRateLimited(ctx, delay, MaxRetryDelay, op, fn)
}

func retryRateLimited(ctx context.Context, delay, maxDelay time.Duration, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.RetryIf(func(err error) bool {
			if !IsRateLimited(err) {
				return false
			}
			slog.WarnContext(ctx, "Google API rate limited, will retry", "operation", op, "error", err)
			return true
		}),
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(delay),
		retry.MaxDelay(maxDelay),
		retry.LastErrorOnly(true),
	)
}

// IsRateLimited reports whether err is a googleapi 429.
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
