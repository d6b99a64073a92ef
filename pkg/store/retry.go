package store

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	"github.com/fraudwatch/sovereign-core/internal/config"
	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

// withRetry bounds retries of op per cfg, retrying only errors whose
// ErrorType reports itself Retryable (CONCURRENCY_CONFLICT, STORAGE).
// Every other error is returned immediately, wrapped as permanent so
// backoff.Retry stops without burning the attempt budget.
func withRetry[T any](ctx context.Context, cfg config.RetryConfig, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialBackoff
	bo.MaxInterval = cfg.MaxBackoff

	wrapped := func() (T, error) {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !coreerrors.GetType(err).Retryable() {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	)
}
