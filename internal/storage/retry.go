package storage

import (
	"context"
	"time"
)

// Retry defaults for transactions that lose a write race to another
// process sharing the database file
const (
	MaxTxAttempts       = 4
	InitialTxBackoffMs  = 25
	MaxTxBackoffMs      = 500
	TxBackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff for busy transactions
type RetryConfig struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound on any single delay
	Multiplier  float64       // Growth factor between delays
}

// DefaultRetryConfig returns the retry policy used by withTx
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: MaxTxAttempts,
		BaseDelay:   time.Duration(InitialTxBackoffMs) * time.Millisecond,
		MaxDelay:    time.Duration(MaxTxBackoffMs) * time.Millisecond,
		Multiplier:  TxBackoffMultiplier,
	}
}

// WithRetryConfig overrides the busy-retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *SQLiteStorage) {
		s.retry = cfg
	}
}

// retryBusy runs fn until it succeeds, fails with an error other than a
// busy/locked database, or runs out of attempts. A deferred transaction
// that read before writing can hit SQLITE_BUSY without the busy timeout
// applying, so the whole transaction is re-run.
func retryBusy(ctx context.Context, config RetryConfig, isRetryable func(error) bool, fn func() error) error {
	var lastErr error
	backoff := config.BaseDelay
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(err) {
			return err
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return lastErr
}
