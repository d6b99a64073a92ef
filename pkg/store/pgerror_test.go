package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

func TestMapPostgresError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantType coreerrors.ErrorType
	}{
		{
			name:     "unique violation maps to invariant/duplicate",
			err:      &pgconn.PgError{Code: "23505"},
			wantType: coreerrors.ErrorTypeInvariant,
		},
		{
			name:     "serialization failure maps to concurrency",
			err:      &pgconn.PgError{Code: "40001"},
			wantType: coreerrors.ErrorTypeConcurrency,
		},
		{
			name:     "deadlock maps to concurrency",
			err:      &pgconn.PgError{Code: "40P01"},
			wantType: coreerrors.ErrorTypeConcurrency,
		},
		{
			name:     "unrecognized error maps to storage",
			err:      errors.New("connection refused"),
			wantType: coreerrors.ErrorTypeStorage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapPostgresError("op", tc.err)
			if coreerrors.GetType(got) != tc.wantType {
				t.Errorf("GetType() = %s, want %s", coreerrors.GetType(got), tc.wantType)
			}
		})
	}
}

func TestMapPostgresErrorNil(t *testing.T) {
	if mapPostgresError("op", nil) != nil {
		t.Error("expected nil error to map to nil")
	}
}
