package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBusy = errors.New("database is locked")

func isTestBusy(err error) bool { return errors.Is(err, errBusy) }

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestRetryBusy(t *testing.T) {
	t.Run("succeeds after busy attempts", func(t *testing.T) {
		calls := 0
		err := retryBusy(context.Background(), fastRetry(4), isTestBusy, func() error {
			calls++
			if calls < 3 {
				return errBusy
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryBusy(context.Background(), fastRetry(3), isTestBusy, func() error {
			calls++
			return errBusy
		})
		assert.ErrorIs(t, err, errBusy)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := retryBusy(context.Background(), fastRetry(5), isTestBusy, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryBusy(ctx, fastRetry(5), isTestBusy, func() error {
			calls++
			cancel()
			return errBusy
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		err := retryBusy(context.Background(), RetryConfig{}, isTestBusy, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.False(t, isBusy(errors.New("database is locked")))
}
