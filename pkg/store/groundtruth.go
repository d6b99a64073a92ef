package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// CreateGroundTruthPair records a human-labeled expected resolution
// outcome for a mention, used by pkg/groundtruth to score the
// resolver's sensitivity and specificity against a held-out label set.
func (s *Store) CreateGroundTruthPair(ctx context.Context, p model.GroundTruthPair) (uuid.UUID, error) {
	id := uuid.New()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ground_truth_pairs (id, mention_id, expected_entity_id, expected_outcome)
			VALUES ($1, $2, $3, $4)`,
			id, p.MentionID, p.ExpectedEntity, p.Outcome)
		if err != nil {
			return mapPostgresError("create_ground_truth_pair", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

type groundTruthRow struct {
	ID                uuid.UUID     `db:"id"`
	MentionID         uuid.UUID     `db:"mention_id"`
	ExpectedEntityID  uuid.NullUUID `db:"expected_entity_id"`
	ExpectedOutcome   string        `db:"expected_outcome"`
	CreatedAt         sql.NullTime  `db:"created_at"`
}

func (r groundTruthRow) toModel() model.GroundTruthPair {
	p := model.GroundTruthPair{
		ID:        r.ID,
		MentionID: r.MentionID,
		Outcome:   model.GroundTruthOutcome(r.ExpectedOutcome),
		CreatedAt: r.CreatedAt.Time,
	}
	if r.ExpectedEntityID.Valid {
		id := r.ExpectedEntityID.UUID
		p.ExpectedEntity = &id
	}
	return p
}

// ListGroundTruthPairs returns the full labeled evaluation set.
func (s *Store) ListGroundTruthPairs(ctx context.Context) ([]model.GroundTruthPair, error) {
	var rows []groundTruthRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM ground_truth_pairs ORDER BY created_at`); err != nil {
		return nil, mapPostgresError("list_ground_truth_pairs", err)
	}
	out := make([]model.GroundTruthPair, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
