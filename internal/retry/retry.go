// Package retry implements the exponential-backoff retry used by every
// outbound LLM provider call, so rate-limited calls back off instead of
// failing the whole recipe.
package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/robotdad/recipe-tool/internal/logging"
)

// Config holds the backoff schedule for WithRetry.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Factor      float64
}

// Default provides sensible defaults for LLM provider calls.
var Default = Config{
	MaxRetries:  5,
	InitialWait: 1 * time.Second,
	MaxWait:     60 * time.Second,
	Factor:      2.0,
}

// ShouldRetry decides whether an error returned by operation is worth
// retrying at all.
type ShouldRetry func(error) bool

// WithRetry runs operation, retrying on errors ShouldRetry accepts, using
// exponential backoff capped at cfg.MaxWait. It honors ctx cancellation
// between attempts and while waiting.
func WithRetry(ctx context.Context, log *logging.Logger, operation func() (interface{}, error), shouldRetry ShouldRetry, cfg Config) (interface{}, error) {
	wait := cfg.InitialWait

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := operation()
		if err == nil || !shouldRetry(err) {
			return result, err
		}

		if attempt == cfg.MaxRetries {
			return nil, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if extracted := extractRetryTime(err.Error()); extracted > 0 {
			retryWait = extracted
		}

		if log != nil {
			log.Debug("retrying after rate-limited error", "error", err, "wait", retryWait, "attempt", attempt+1, "max_retries", cfg.MaxRetries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryWait):
		}

		wait = time.Duration(float64(wait) * cfg.Factor)
	}

	return nil, fmt.Errorf("unexpected end of retry loop")
}

// Is429Error reports whether err looks like a rate-limit response, the one
// failure class every provider here retries on.
func Is429Error(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "too many requests")
}

// extractRetryTime pulls a concrete wait duration out of a provider error
// message ("retry after 30 seconds"), when one is present.
func extractRetryTime(errMsg string) time.Duration {
	patterns := []string{"retry in ", "retry after ", "try again in ", "try again after "}

	lower := strings.ToLower(errMsg)
	for _, pattern := range patterns {
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		rest := errMsg[idx+len(pattern):]

		var seconds int
		if _, err := fmt.Sscanf(rest, "%ds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if _, err := fmt.Sscanf(rest, "%d seconds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
