package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "igfollow/pkg/errors"
	"igfollow/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// Config holds retry configuration. The zero value performs no retries.
type Config struct {
	// MaxRetries is the number of extra attempts after the first one
	MaxRetries int
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// NewConfig returns a configuration retrying transient failures maxRetries times
func NewConfig(maxRetries int, log logger.Logger) Config {
	return Config{
		MaxRetries: maxRetries,
		Backoff:    DefaultExponentialBackoff(),
		RetryIf:    DefaultRetryIf,
		Logger:     log,
	}
}

// Enabled reports whether the configuration allows more than one attempt
func (c Config) Enabled() bool {
	return c.MaxRetries > 0
}

// DefaultRetryIf retries network failures, 429 and 5xx responses
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errs.IsRetryable(err)
}

// Do runs op until it succeeds, returns a non-retryable error, or runs out of
// attempts. Waiting between attempts honours ctx.
func Do(ctx context.Context, cfg Config, op Operation) error {
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if attempt > cfg.MaxRetries {
			if cfg.MaxRetries > 0 {
				log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": lastErr.Error(),
				})
				return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxRetries, lastErr)
			}
			return lastErr
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":     attempt,
			"error":       err.Error(),
			"delay":       delay,
			"max_retries": cfg.MaxRetries,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
