// Package store is the transactional persistence layer over the
// entity-fact data model: entities, identifiers, facts, mentions, and
// the audit log. Every public operation is atomic — it either commits
// in full or leaves no trace — and failures surface through the core
// error taxonomy (internal/errors) rather than raw driver errors.
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// AuditHasher computes the deterministic entry_hash for an audit
// entry given the previous entry's hash. pkg/audit owns the actual
// algorithm; Store only needs the shape to persist entries as a
// first-class step of the same transaction as the mutation they
// describe, never a best-effort side effect.
type AuditHasher interface {
	ComputeHash(previousHash string, entry model.AuditEntry) string
}

// Store is the Postgres-backed implementation of the core's
// transactional contract.
type Store struct {
	db      *sqlx.DB
	log     *zap.Logger
	retry   config.RetryConfig
	breaker *gobreaker.CircuitBreaker[any]
	hasher  AuditHasher
}

// New wraps db with retry and circuit-breaking policy. The breaker
// trips on the sixth consecutive transaction failure, so a degraded
// backing store fails fast instead of piling up bounded retries on
// every caller.
func New(db *sqlx.DB, log *zap.Logger, retryCfg config.RetryConfig, hasher AuditHasher) *Store {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("store circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		},
	})
	return &Store{db: db, log: log, retry: retryCfg, breaker: breaker, hasher: hasher}
}

// withTx runs fn inside a transaction, retrying bounded by s.retry on
// retryable errors and tripping the circuit breaker on repeated
// failure. fn's returned error is mapped from the raw driver error
// space only by callers that know the operation name; withTx itself
// never reinterprets it.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	op := func() (any, error) {
		return nil, s.runInBreaker(ctx, fn)
	}
	_, err := withRetry(ctx, s.retry, op)
	return err
}

func (s *Store) runInBreaker(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, coreerrors.NewStorageError("begin_tx", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, coreerrors.NewStorageError("commit_tx", err)
		}
		return nil, nil
	})
	return err
}
