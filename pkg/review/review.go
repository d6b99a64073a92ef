// Package review implements the human review queue of spec §4.6: a
// FIFO-with-priority list of ResolutionDecision entries awaiting a
// verdict. Submitting HUMAN_MATCH binds the mention to the chosen
// candidate; HUMAN_REJECT against every candidate results in a new
// entity, mirroring the resolver's own reject path.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// Store is the subset of *store.Store the review queue depends on.
type Store interface {
	DequeueNext(ctx context.Context) (model.ResolutionDecision, bool, error)
	DequeueByType(ctx context.Context, entityType model.EntityType) (model.ResolutionDecision, bool, error)
	SubmitVerdict(ctx context.Context, decisionID uuid.UUID, matched bool, chosenEntity *uuid.UUID, reviewer string) error
	GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error)
	ResolveMention(ctx context.Context, mentionID uuid.UUID, resolution model.Resolution) error
	CreateEntity(ctx context.Context, entityType model.EntityType, canonicalName string, confidence float64, prov model.Provenance) (uuid.UUID, error)
	AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error)
}

// Queue wraps Store with the review-specific verdict semantics.
type Queue struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Queue {
	return &Queue{store: store, log: log}
}

// Next returns the highest-priority, oldest pending decision.
func (q *Queue) Next(ctx context.Context) (model.ResolutionDecision, bool, error) {
	return q.store.DequeueNext(ctx)
}

// NextOfType returns the highest-priority, oldest pending decision
// whose mention is of entityType.
func (q *Queue) NextOfType(ctx context.Context, entityType model.EntityType) (model.ResolutionDecision, bool, error) {
	return q.store.DequeueByType(ctx, entityType)
}

// SubmitMatch records a HUMAN_MATCH verdict against chosenEntity and
// binds the decision's mention to it.
func (q *Queue) SubmitMatch(ctx context.Context, decision model.ResolutionDecision, chosenEntity uuid.UUID, reviewer string) error {
	if !containsCandidate(decision.Candidates, chosenEntity) {
		return coreerrors.NewInvariantError("chosen entity was not among the decision's scored candidates")
	}
	if err := q.store.SubmitVerdict(ctx, decision.ID, true, &chosenEntity, reviewer); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := q.store.ResolveMention(ctx, decision.Mention, model.Resolution{
		Status: model.ResolutionStatusHumanMatched, ResolvedEntity: &chosenEntity,
		Confidence: 1.0, Method: "HUMAN_REVIEW", Reviewer: reviewer, Timestamp: &now,
	}); err != nil {
		return err
	}
	q.audit(ctx, decision.Mention, "HUMAN_MATCH", chosenEntity, reviewer)
	metrics.RecordResolution(string(model.ResolutionStatusHumanMatched))
	return nil
}

// SubmitReject records a HUMAN_REJECT verdict against every scored
// candidate and mints a new entity for the mention, mirroring the
// resolver's own below-review-floor path.
func (q *Queue) SubmitReject(ctx context.Context, decision model.ResolutionDecision, reviewer string) (uuid.UUID, error) {
	if err := q.store.SubmitVerdict(ctx, decision.ID, false, nil, reviewer); err != nil {
		return uuid.Nil, err
	}

	mention, err := q.store.GetMention(ctx, decision.Mention)
	if err != nil {
		return uuid.Nil, err
	}
	name := mention.NormalizedForm
	if name == "" {
		name = mention.SurfaceForm
	}
	entityID, err := q.store.CreateEntity(ctx, entityTypeFor(mention.MentionType), name, 1.0, mention.Provenance)
	if err != nil {
		return uuid.Nil, err
	}
	now := time.Now().UTC()
	if err := q.store.ResolveMention(ctx, decision.Mention, model.Resolution{
		Status: model.ResolutionStatusHumanRejected, ResolvedEntity: &entityID,
		Confidence: 1.0, Method: "HUMAN_REVIEW", Reviewer: reviewer, Timestamp: &now,
	}); err != nil {
		return uuid.Nil, err
	}
	q.audit(ctx, decision.Mention, "HUMAN_REJECT", entityID, reviewer)
	metrics.RecordResolution(string(model.ResolutionStatusHumanRejected))
	return entityID, nil
}

func (q *Queue) audit(ctx context.Context, mention uuid.UUID, verdict string, entity uuid.UUID, reviewer string) {
	_, err := q.store.AppendAudit(ctx, model.AuditEntry{
		EventType: "HUMAN_REVIEW",
		Actor:     model.Actor{Type: model.ActorTypeUser, ID: reviewer},
		Target:    model.Target{Type: "mention", ID: mention},
		Payload:   map[string]any{"verdict": verdict, "entity": entity.String()},
	})
	if err != nil {
		q.log.Error("failed to append audit entry for review verdict", zap.Error(err), zap.String("mention", mention.String()))
	}
}

func containsCandidate(candidates []model.CandidateScore, entity uuid.UUID) bool {
	for _, c := range candidates {
		if c.Entity == entity {
			return true
		}
	}
	return false
}

func entityTypeFor(mt model.MentionType) model.EntityType {
	switch mt {
	case model.MentionTypePerson:
		return model.EntityTypePerson
	case model.MentionTypeCompany:
		return model.EntityTypeCompany
	case model.MentionTypeAddress:
		return model.EntityTypeAddress
	default:
		return model.EntityTypeEvent
	}
}
