package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

// mapPostgresError translates a raw driver error into the core error
// taxonomy. unique_violation (23505) becomes DUPLICATE_IDENTIFIER;
// serialization_failure (40001) and deadlock_detected (40P01) become
// CONCURRENCY_CONFLICT, since both mean "retry the transaction".
// Anything else is wrapped as an opaque storage error.
func mapPostgresError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return coreerrors.NewDuplicateIdentifierError(operation, pgErr.Detail)
		case "40001", "40P01":
			return coreerrors.NewConcurrencyConflictError(operation)
		}
	}
	return coreerrors.NewStorageError(operation, err)
}
