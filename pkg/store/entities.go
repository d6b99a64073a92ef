package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

type entityRow struct {
	ID                   uuid.UUID      `db:"id"`
	EntityType           string         `db:"entity_type"`
	CanonicalName        string         `db:"canonical_name"`
	ResolutionConfidence float64        `db:"resolution_confidence"`
	Status               string         `db:"status"`
	MergedInto           sql.NullString `db:"merged_into"`
	SplitFrom            sql.NullString `db:"split_from"`
	CreatedAt            sql.NullTime   `db:"created_at"`
	UpdatedAt            sql.NullTime   `db:"updated_at"`
	AnonymizedAt         sql.NullTime   `db:"anonymized_at"`
}

func (r entityRow) toModel() model.Entity {
	e := model.Entity{
		ID:                   r.ID,
		EntityType:           model.EntityType(r.EntityType),
		CanonicalName:        r.CanonicalName,
		ResolutionConfidence: r.ResolutionConfidence,
		Status:               model.EntityStatus(r.Status),
		CreatedAt:            r.CreatedAt.Time,
		UpdatedAt:            r.UpdatedAt.Time,
	}
	if r.MergedInto.Valid {
		id := uuid.MustParse(r.MergedInto.String)
		e.MergedInto = &id
	}
	if r.SplitFrom.Valid {
		id := uuid.MustParse(r.SplitFrom.String)
		e.SplitFrom = &id
	}
	if r.AnonymizedAt.Valid {
		t := r.AnonymizedAt.Time
		e.AnonymizedAt = &t
	}
	return e
}

// CreateEntity inserts a new ACTIVE entity and returns its id.
func (s *Store) CreateEntity(ctx context.Context, entityType model.EntityType, canonicalName string, confidence float64, prov model.Provenance) (uuid.UUID, error) {
	id := uuid.New()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (id, entity_type, canonical_name, resolution_confidence, status)
			VALUES ($1, $2, $3, $4, 'ACTIVE')`,
			id, entityType, canonicalName, confidence)
		if err != nil {
			return mapPostgresError("create_entity", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetEntity fetches an entity by id, NOT_FOUND if absent.
func (s *Store) GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error) {
	var row entityRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM entities WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, coreerrors.NewNotFoundError("entity").WithDetailsf("id=%s", id)
	}
	if err != nil {
		return model.Entity{}, mapPostgresError("get_entity", err)
	}
	return row.toModel(), nil
}

// ListActiveEntityIDs returns every ACTIVE entity id of entityType,
// the enumeration derivation and pattern scans partition by
// hash(entity_id) mod N across worker goroutines.
func (s *Store) ListActiveEntityIDs(ctx context.Context, entityType model.EntityType) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM entities WHERE entity_type = $1 AND status = 'ACTIVE' ORDER BY id`, entityType)
	if err != nil {
		return nil, mapPostgresError("list_active_entity_ids", err)
	}
	return ids, nil
}

// SearchEntities ranks entities by trigram similarity of canonicalName
// against canonical_name, falling back to identifier-prefix matches so
// a query like an organisationsnummer prefix also surfaces results.
// Optionally restricted to entityType; empty means any type.
func (s *Store) SearchEntities(ctx context.Context, query string, entityType model.EntityType, limit, offset int) ([]model.Entity, error) {
	var rows []entityRow
	args := []any{query, limit, offset}
	typeFilter := ""
	if entityType != "" {
		typeFilter = "AND e.entity_type = $4"
		args = append(args, entityType)
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT e.* FROM entities e
		LEFT JOIN identifiers i ON i.entity_id = e.id
		WHERE (e.canonical_name % $1 OR i.value LIKE $1 || '%') `+typeFilter+`
		ORDER BY similarity(e.canonical_name, $1) DESC
		LIMIT $2 OFFSET $3`, args...)
	if err != nil {
		return nil, mapPostgresError("search_entities", err)
	}
	out := make([]model.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ListMergedInto returns the ids of entities that were merged into id,
// the reverse of the forward merged_into pointer, for get_entity's
// include_same_as expansion.
func (s *Store) ListMergedInto(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM entities WHERE merged_into = $1 ORDER BY id`, id)
	if err != nil {
		return nil, mapPostgresError("list_merged_into", err)
	}
	return ids, nil
}

// canonicalOf resolves e to the ACTIVE entity at the head of its
// SAME_AS chain (direct merged_into pointer, one hop — merges form a
// flat star, never a multi-hop chain, since merge always targets an
// existing ACTIVE canonical per the resolver's merge operation).
func (s *Store) canonicalOf(ctx context.Context, tx *sqlx.Tx, e model.Entity) (model.Entity, error) {
	for e.Status == model.EntityStatusMerged && e.MergedInto != nil {
		var row entityRow
		var err error
		if tx != nil {
			err = tx.GetContext(ctx, &row, `SELECT * FROM entities WHERE id = $1`, *e.MergedInto)
		} else {
			err = s.db.GetContext(ctx, &row, `SELECT * FROM entities WHERE id = $1`, *e.MergedInto)
		}
		if err != nil {
			return model.Entity{}, mapPostgresError("canonical_of", err)
		}
		e = row.toModel()
	}
	return e, nil
}

// UpdateEntityStatus transitions an entity's status (used by
// pkg/lifecycle for merge/split/anonymize). It is not itself a
// lifecycle operation — it performs no validation of the transition,
// which is pkg/lifecycle's responsibility.
func (s *Store) UpdateEntityStatus(ctx context.Context, id uuid.UUID, status model.EntityStatus, mergedInto, splitFrom *uuid.UUID) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE entities SET status = $2, merged_into = $3, split_from = $4, updated_at = now()
			WHERE id = $1`,
			id, status, mergedInto, splitFrom)
		if err != nil {
			return mapPostgresError("update_entity_status", err)
		}
		return nil
	})
}

// AnonymizeEntity replaces canonical_name with "ANONYMIZED_" plus an
// md5 hash of the entity id and stamps anonymized_at. Identifiers are
// deleted outright. Every ATTRIBUTE fact value of the entity,
// superseded ones included, is nulled in place (their provenance,
// confidence, and timestamps are left untouched, per spec: values
// cleared, provenance preserved).
// RELATIONSHIP facts where this entity is subject or object are left
// untouched, since spec requires relationship structure to survive
// anonymization.
func (s *Store) AnonymizeEntity(ctx context.Context, id uuid.UUID) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE entities
			SET status = 'ANONYMIZED', canonical_name = 'ANONYMIZED_' || md5(id::text), anonymized_at = now(), updated_at = now()
			WHERE id = $1`, id)
		if err != nil {
			return mapPostgresError("anonymize_entity", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return coreerrors.NewNotFoundError("entity").WithDetailsf("id=%s", id)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM identifiers WHERE entity_id = $1`, id)
		if err != nil {
			return mapPostgresError("anonymize_entity_identifiers", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE facts
			SET value_kind = NULL, value_string = NULL, value_number = NULL, value_bool = NULL
			WHERE subject_id = $1 AND fact_type = 'ATTRIBUTE'`, id)
		if err != nil {
			return mapPostgresError("anonymize_entity_facts", err)
		}
		return nil
	})
}
