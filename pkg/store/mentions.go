package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// CreateMention inserts a PENDING mention.
func (s *Store) CreateMention(ctx context.Context, m model.Mention) (uuid.UUID, error) {
	id := uuid.New()
	extractedIDs, err := json.Marshal(m.ExtractedIdentifiers)
	if err != nil {
		return uuid.Nil, coreerrors.NewValidationError("extracted_identifiers must be JSON-serializable")
	}
	extractedAttrs, err := json.Marshal(m.ExtractedAttributes)
	if err != nil {
		return uuid.Nil, coreerrors.NewValidationError("extracted_attributes must be JSON-serializable")
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mentions (
				id, mention_type, surface_form, normalized_form,
				extracted_identifiers, extracted_attributes,
				source_type, source_id, source_url, document_hash, extraction_method, extractor_version, provenance_timestamp,
				document_location, resolution_status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,'PENDING')`,
			id, m.MentionType, m.SurfaceForm, m.NormalizedForm,
			extractedIDs, extractedAttrs,
			m.Provenance.SourceType, m.Provenance.SourceID, nullIfEmpty(m.Provenance.URL), nullIfEmpty(m.Provenance.DocumentHash),
			nullIfEmpty(m.Provenance.ExtractionMethod), nullIfEmpty(m.Provenance.ExtractorVersion), m.Provenance.Timestamp,
			nullIfEmpty(m.DocumentLocation),
		)
		if err != nil {
			return mapPostgresError("create_mention", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ResolveMention stamps a mention with its terminal (or still-pending,
// for HUMAN review enqueue) resolution outcome.
func (s *Store) ResolveMention(ctx context.Context, mentionID uuid.UUID, decision model.Resolution) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE mentions SET
				resolution_status = $2,
				resolved_entity_id = $3,
				resolution_confidence = $4,
				resolution_method = $5,
				resolution_timestamp = $6,
				resolution_reviewer = $7
			WHERE id = $1`,
			mentionID, decision.Status, decision.ResolvedEntity, decision.Confidence,
			nullIfEmpty(decision.Method), decision.Timestamp, nullIfEmpty(decision.Reviewer),
		)
		if err != nil {
			return mapPostgresError("resolve_mention", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return coreerrors.NewNotFoundError("mention").WithDetailsf("id=%s", mentionID)
		}
		return nil
	})
}

type mentionRow struct {
	ID                   uuid.UUID       `db:"id"`
	MentionType          string          `db:"mention_type"`
	SurfaceForm          string          `db:"surface_form"`
	NormalizedForm       string          `db:"normalized_form"`
	ExtractedIdentifiers json.RawMessage `db:"extracted_identifiers"`
	ExtractedAttributes  json.RawMessage `db:"extracted_attributes"`
	DocumentLocation     sql.NullString  `db:"document_location"`
	ResolutionStatus     string          `db:"resolution_status"`
	ResolvedEntityID     uuid.NullUUID   `db:"resolved_entity_id"`
	ResolutionConfidence sql.NullFloat64 `db:"resolution_confidence"`
	ResolutionMethod     sql.NullString  `db:"resolution_method"`
	ResolutionTimestamp  sql.NullTime    `db:"resolution_timestamp"`
	ResolutionReviewer   sql.NullString  `db:"resolution_reviewer"`
	CreatedAt            time.Time       `db:"created_at"`
}

func (r mentionRow) toModel() model.Mention {
	var ids map[model.IdentifierType]string
	json.Unmarshal(r.ExtractedIdentifiers, &ids)
	var attrs map[string]string
	json.Unmarshal(r.ExtractedAttributes, &attrs)

	m := model.Mention{
		ID:                   r.ID,
		MentionType:          model.MentionType(r.MentionType),
		SurfaceForm:          r.SurfaceForm,
		NormalizedForm:       r.NormalizedForm,
		ExtractedIdentifiers: ids,
		ExtractedAttributes:  attrs,
		DocumentLocation:     r.DocumentLocation.String,
		CreatedAt:            r.CreatedAt,
		Resolution: model.Resolution{
			Status:     model.ResolutionStatus(r.ResolutionStatus),
			Confidence: r.ResolutionConfidence.Float64,
			Method:     r.ResolutionMethod.String,
			Reviewer:   r.ResolutionReviewer.String,
		},
	}
	if r.ResolvedEntityID.Valid {
		id := r.ResolvedEntityID.UUID
		m.Resolution.ResolvedEntity = &id
	}
	if r.ResolutionTimestamp.Valid {
		t := r.ResolutionTimestamp.Time
		m.Resolution.Timestamp = &t
	}
	return m
}

// GetMention fetches a mention by id.
func (s *Store) GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error) {
	var row mentionRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM mentions WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return model.Mention{}, coreerrors.NewNotFoundError("mention").WithDetailsf("id=%s", id)
		}
		return model.Mention{}, mapPostgresError("get_mention", err)
	}
	return row.toModel(), nil
}

// PendingMentions returns up to limit mentions in PENDING status, used
// by the scheduler to batch ingestion into the resolver.
func (s *Store) PendingMentions(ctx context.Context, limit int) ([]model.Mention, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []mentionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM mentions WHERE resolution_status = 'PENDING' ORDER BY created_at LIMIT `+sqlLimit(limit))
	if err != nil {
		return nil, mapPostgresError("pending_mentions", err)
	}
	out := make([]model.Mention, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
