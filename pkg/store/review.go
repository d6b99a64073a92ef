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

// CreateResolutionDecision enqueues a scored mention for human review.
// Only PENDING_REVIEW decisions should ever be created here — a
// decision the resolver resolved automatically is logged, not queued.
func (s *Store) CreateResolutionDecision(ctx context.Context, d model.ResolutionDecision) (uuid.UUID, error) {
	id := uuid.New()
	candidates, err := json.Marshal(d.Candidates)
	if err != nil {
		return uuid.Nil, coreerrors.NewValidationError("candidates must be JSON-serializable")
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO review_queue (id, mention_id, status, candidates, priority)
			VALUES ($1,$2,$3,$4,$5)`,
			id, d.Mention, model.ReviewStatusPendingReview, candidates, d.Priority,
		)
		if err != nil {
			return mapPostgresError("create_resolution_decision", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

type reviewRow struct {
	ID             uuid.UUID       `db:"id"`
	MentionID      uuid.UUID       `db:"mention_id"`
	Status         string          `db:"status"`
	Candidates     json.RawMessage `db:"candidates"`
	Priority       int             `db:"priority"`
	CreatedAt      time.Time       `db:"created_at"`
	DecidedAt      sql.NullTime    `db:"decided_at"`
	Verdict        sql.NullString  `db:"verdict"`
	ChosenEntityID uuid.NullUUID   `db:"chosen_entity_id"`
	Reviewer       sql.NullString  `db:"reviewer"`
}

func (r reviewRow) toModel() model.ResolutionDecision {
	var candidates []model.CandidateScore
	json.Unmarshal(r.Candidates, &candidates)

	d := model.ResolutionDecision{
		ID:         r.ID,
		Mention:    r.MentionID,
		Candidates: candidates,
		Status:     model.ReviewStatus(r.Status),
		Priority:   r.Priority,
		Reviewer:   r.Reviewer.String,
		CreatedAt:  r.CreatedAt,
	}
	if r.DecidedAt.Valid {
		t := r.DecidedAt.Time
		d.DecidedAt = &t
	}
	if r.ChosenEntityID.Valid {
		id := r.ChosenEntityID.UUID
		d.ChosenEntity = &id
	}
	return d
}

// DequeueNext returns the highest-priority, oldest PENDING_REVIEW
// decision, or found=false if the queue is empty.
func (s *Store) DequeueNext(ctx context.Context) (decision model.ResolutionDecision, found bool, err error) {
	var row reviewRow
	err = s.db.GetContext(ctx, &row, `
		SELECT * FROM review_queue
		WHERE status = 'PENDING_REVIEW'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`)
	if err == sql.ErrNoRows {
		return model.ResolutionDecision{}, false, nil
	}
	if err != nil {
		return model.ResolutionDecision{}, false, mapPostgresError("dequeue_next", err)
	}
	return row.toModel(), true, nil
}

// DequeueByType returns the highest-priority, oldest PENDING_REVIEW
// decision whose mention is of entityType, or found=false if none
// match.
func (s *Store) DequeueByType(ctx context.Context, entityType model.EntityType) (decision model.ResolutionDecision, found bool, err error) {
	var row reviewRow
	mentionType := mentionTypeFor(entityType)
	err = s.db.GetContext(ctx, &row, `
		SELECT rq.* FROM review_queue rq
		JOIN mentions m ON m.id = rq.mention_id
		WHERE rq.status = 'PENDING_REVIEW' AND m.mention_type = $1
		ORDER BY rq.priority DESC, rq.created_at ASC
		LIMIT 1`, mentionType)
	if err == sql.ErrNoRows {
		return model.ResolutionDecision{}, false, nil
	}
	if err != nil {
		return model.ResolutionDecision{}, false, mapPostgresError("dequeue_by_type", err)
	}
	return row.toModel(), true, nil
}

// CountPendingReview returns the number of decisions awaiting a
// verdict, for the review-queue-depth gauge.
func (s *Store) CountPendingReview(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM review_queue WHERE status = 'PENDING_REVIEW'`); err != nil {
		return 0, mapPostgresError("count_pending_review", err)
	}
	return n, nil
}

// GetDecisionByMention fetches the PENDING_REVIEW decision queued for
// mentionID, NOT_FOUND if none is queued. Backs resolution_submit_decision,
// which is keyed by mention rather than the internal decision id.
func (s *Store) GetDecisionByMention(ctx context.Context, mentionID uuid.UUID) (model.ResolutionDecision, error) {
	var row reviewRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM review_queue WHERE mention_id = $1 AND status = 'PENDING_REVIEW'`, mentionID)
	if err == sql.ErrNoRows {
		return model.ResolutionDecision{}, coreerrors.NewNotFoundError("pending resolution decision").WithDetailsf("mention=%s", mentionID)
	}
	if err != nil {
		return model.ResolutionDecision{}, mapPostgresError("get_decision_by_mention", err)
	}
	return row.toModel(), nil
}

// ListPendingReview returns up to limit PENDING_REVIEW decisions,
// highest priority and oldest first, for the resolution_queue query
// operation (a list view, distinct from DequeueNext's single-item peek
// used by the review package's verdict-submission workflow).
func (s *Store) ListPendingReview(ctx context.Context, limit int) ([]model.ResolutionDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []reviewRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM review_queue
		WHERE status = 'PENDING_REVIEW'
		ORDER BY priority DESC, created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapPostgresError("list_pending_review", err)
	}
	decisions := make([]model.ResolutionDecision, 0, len(rows))
	for _, r := range rows {
		decisions = append(decisions, r.toModel())
	}
	return decisions, nil
}

func mentionTypeFor(entityType model.EntityType) model.MentionType {
	switch entityType {
	case model.EntityTypePerson:
		return model.MentionTypePerson
	case model.EntityTypeCompany:
		return model.MentionTypeCompany
	case model.EntityTypeAddress:
		return model.MentionTypeAddress
	default:
		return model.MentionTypeEvent
	}
}

// SubmitVerdict records a human reviewer's decision on a queued
// resolution: HUMAN_MATCH binds the mention to chosenEntity, HUMAN_REJECT
// leaves the mention unbound (the caller is expected to create a new
// entity and re-resolve). Rejects once the decision has already been
// decided.
func (s *Store) SubmitVerdict(ctx context.Context, decisionID uuid.UUID, matched bool, chosenEntity *uuid.UUID, reviewer string) error {
	status := model.ReviewStatusHumanRejected
	if matched {
		status = model.ReviewStatusHumanMatched
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE review_queue SET
				status = $2, decided_at = now(), chosen_entity_id = $3, reviewer = $4
			WHERE id = $1 AND status = 'PENDING_REVIEW'`,
			decisionID, status, chosenEntity, nullIfEmpty(reviewer),
		)
		if err != nil {
			return mapPostgresError("submit_verdict", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return coreerrors.NewInvariantError("resolution decision already decided or not found").WithDetailsf("id=%s", decisionID)
		}
		return nil
	})
}
