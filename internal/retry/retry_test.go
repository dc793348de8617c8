package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Factor: 2}

	result, err := WithRetry(context.Background(), nil, func() (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("429 rate limit exceeded")
		}
		return "ok", nil
	}, Is429Error, cfg)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), nil, func() (interface{}, error) {
		attempts++
		return nil, errors.New("boom")
	}, Is429Error, Default)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsRetries(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Factor: 1}
	attempts := 0

	_, err := WithRetry(context.Background(), nil, func() (interface{}, error) {
		attempts++
		return nil, errors.New("429")
	}, Is429Error, cfg)

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialWait: time.Second, MaxWait: time.Second, Factor: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(ctx, nil, func() (interface{}, error) {
		return nil, errors.New("429")
	}, Is429Error, cfg)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractRetryTime(t *testing.T) {
	assert.Equal(t, 18*time.Second, extractRetryTime("please retry in 18s"))
	assert.Equal(t, 30*time.Second, extractRetryTime("try again after 30 seconds"))
	assert.Equal(t, time.Duration(0), extractRetryTime("no timing info here"))
}

func TestIs429Error(t *testing.T) {
	assert.True(t, Is429Error(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, Is429Error(errors.New("quota exceeded for this project")))
	assert.False(t, Is429Error(errors.New("not found")))
	assert.False(t, Is429Error(nil))
}
