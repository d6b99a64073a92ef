package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

type fakeHasher struct{}

func (fakeHasher) ComputeHash(previousHash string, entry model.AuditEntry) string {
	return "fake-hash"
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return New(sqlxDB, zap.NewNop(), config.DefaultRetryConfig(), fakeHasher{}), mock
}

func TestCreateEntity(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").
		WithArgs(sqlmock.AnyArg(), model.EntityTypeCompany, "EXAMPLE AB", 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateEntity(context.Background(), model.EntityTypeCompany, "EXAMPLE AB", 0.0, model.Provenance{
		SourceType: model.SourceTypeAuthoritativeRegistry,
		SourceID:   "bolagsverket",
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEntity() error = %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a non-nil id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetEntityNotFound(t *testing.T) {
	s, mock := newTestStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT \\* FROM entities WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := s.GetEntity(context.Background(), id)
	if err == nil {
		t.Fatal("expected NOT_FOUND error")
	}
	if coreerrors.GetType(err) != coreerrors.ErrorTypeNotFound {
		t.Errorf("error type = %s, want not_found", coreerrors.GetType(err))
	}
}

func TestListMergedInto(t *testing.T) {
	s, mock := newTestStore(t)

	canonical := uuid.New()
	merged := uuid.New()
	mock.ExpectQuery("SELECT id FROM entities WHERE merged_into = \\$1").
		WithArgs(canonical).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(merged))

	ids, err := s.ListMergedInto(context.Background(), canonical)
	if err != nil {
		t.Fatalf("ListMergedInto() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != merged {
		t.Errorf("ids = %v, want [%v]", ids, merged)
	}
}

func TestSearchEntitiesFiltersByType(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT DISTINCT e\\.\\* FROM entities e").
		WithArgs("volvo", 10, 0, model.EntityTypeCompany).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "entity_type", "canonical_name", "resolution_confidence", "status",
		}).AddRow(uuid.New(), "COMPANY", "VOLVO AB", 0.9, "ACTIVE"))

	results, err := s.SearchEntities(context.Background(), "volvo", model.EntityTypeCompany, 10, 0)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}
	if len(results) != 1 || results[0].CanonicalName != "VOLVO AB" {
		t.Errorf("results = %+v, want one VOLVO AB entity", results)
	}
}
