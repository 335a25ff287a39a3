package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"referral-intake/domain"
)

func fastRetry(attempts int) *RetryConfig {
	cfg := RetryConfigForAttempts(attempts)
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.JitterFactor = 0
	return cfg
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"retryable oracle error", &domain.OracleError{Kind: domain.OracleStatus, StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}, true},
		{"permanent oracle error", &domain.OracleError{Kind: domain.OracleStatus, StatusCode: 401, Err: errors.New("HTTP 503 text ignored")}, false},
		{"parse error", &domain.OracleError{Kind: domain.OracleParse, Err: errors.New("bad json")}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"bad request", errors.New("400 bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable(t *testing.T) {
	t.Run("retries transient failures within budget", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastRetry(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("503 service unavailable")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("single attempt budget never retries", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastRetry(1), func() error {
			calls++
			return errors.New("503 service unavailable")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("permanent failure stops immediately", func(t *testing.T) {
		calls := 0
		permanent := errors.New("invalid api key")
		err := DoIfRetryable(context.Background(), fastRetry(5), func() error {
			calls++
			return permanent
		})
		assert.Equal(t, permanent, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := fastRetry(5)
		cfg.InitialDelay = time.Hour
		cfg.MaxDelay = time.Hour

		calls := 0
		err := DoIfRetryable(ctx, cfg, func() error {
			calls++
			cancel()
			return errors.New("timeout")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
