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

// AddIdentifier binds a typed identifier to entity. Fails with
// DUPLICATE_IDENTIFIER if (type, value) is already bound to a
// different entity.
func (s *Store) AddIdentifier(ctx context.Context, entity uuid.UUID, idType model.IdentifierType, value string, confidence float64, prov model.Provenance) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO identifiers (
				entity_id, identifier_type, value, confidence,
				source_type, source_id, source_url, document_hash,
				extraction_method, extractor_version, provenance_timestamp
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			entity, idType, value, confidence,
			prov.SourceType, prov.SourceID, nullIfEmpty(prov.URL), nullIfEmpty(prov.DocumentHash),
			nullIfEmpty(prov.ExtractionMethod), nullIfEmpty(prov.ExtractorVersion), prov.Timestamp,
		)
		if err != nil {
			mapped := mapPostgresError("add_identifier", err)
			if ce, ok := mapped.(*coreerrors.CoreError); ok && ce.Details == "DUPLICATE_IDENTIFIER" {
				return coreerrors.NewDuplicateIdentifierError(string(idType), value)
			}
			return mapped
		}
		return nil
	})
}

// LookupByIdentifier resolves (type, value) to the canonical ACTIVE
// entity representing its identity cluster. Returns found=false if no
// entity carries the identifier.
func (s *Store) LookupByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (entity model.Entity, found bool, err error) {
	var entityID uuid.UUID
	err = s.db.GetContext(ctx, &entityID, `
		SELECT entity_id FROM identifiers WHERE identifier_type = $1 AND value = $2 AND (valid_to IS NULL)`,
		idType, value)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, false, nil
	}
	if err != nil {
		return model.Entity{}, false, mapPostgresError("lookup_by_identifier", err)
	}

	var row entityRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM entities WHERE id = $1`, entityID); err != nil {
		return model.Entity{}, false, mapPostgresError("lookup_by_identifier_entity", err)
	}
	e, err := s.canonicalOf(ctx, nil, row.toModel())
	if err != nil {
		return model.Entity{}, false, err
	}
	return e, true, nil
}

// ListIdentifiers returns every currently-valid identifier bound to
// entity, used by the resolver to recover structured attributes
// (birth year, org type) a candidate carries without re-parsing its
// canonical name.
func (s *Store) ListIdentifiers(ctx context.Context, entity uuid.UUID) ([]model.Identifier, error) {
	type identifierRow struct {
		EntityID   uuid.UUID      `db:"entity_id"`
		Type       string         `db:"identifier_type"`
		Value      string         `db:"value"`
		Confidence float64        `db:"confidence"`
		ValidFrom  sql.NullTime   `db:"valid_from"`
		ValidTo    sql.NullTime   `db:"valid_to"`
		SourceType string         `db:"source_type"`
		SourceID   string         `db:"source_id"`
	}
	var rows []identifierRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT entity_id, identifier_type, value, confidence, valid_from, valid_to, source_type, source_id
		FROM identifiers WHERE entity_id = $1 AND valid_to IS NULL`, entity)
	if err != nil {
		return nil, mapPostgresError("list_identifiers", err)
	}
	out := make([]model.Identifier, 0, len(rows))
	for _, r := range rows {
		id := model.Identifier{
			Entity:     r.EntityID,
			Type:       model.IdentifierType(r.Type),
			Value:      r.Value,
			Confidence: r.Confidence,
			ValidFrom:  r.ValidFrom.Time,
			Provenance: model.Provenance{
				SourceType: model.ProvenanceSourceType(r.SourceType),
				SourceID:   r.SourceID,
			},
		}
		if r.ValidTo.Valid {
			t := r.ValidTo.Time
			id.ValidTo = &t
		}
		out = append(out, id)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
