// Package resolver implements the per-mention resolution pipeline:
// block for candidates, score each one, apply entity-type thresholds,
// and either auto-match, enqueue for human review, or mint a new
// entity. An auto-match attaches the mention's identifiers only; the
// pipeline attaches no facts and does not call ResolveFactConflict,
// which decides between two facts by the source-authority table.
package resolver

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/blocking"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/scoring"
	"github.com/fraudwatch/sovereign-core/pkg/store"
)

// Store is the subset of *store.Store the resolver depends on,
// declared here so the resolver can be tested against a fake without
// importing the full Postgres-backed implementation's test harness.
type Store interface {
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	CreateEntity(ctx context.Context, entityType model.EntityType, canonicalName string, confidence float64, prov model.Provenance) (uuid.UUID, error)
	AddIdentifier(ctx context.Context, entity uuid.UUID, idType model.IdentifierType, value string, confidence float64, prov model.Provenance) error
	ListIdentifiers(ctx context.Context, entity uuid.UUID) ([]model.Identifier, error)
	AddFact(ctx context.Context, f model.Fact) (uuid.UUID, error)
	SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error)
	CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error)
	Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction store.NeighborDirection, limit int) ([]uuid.UUID, error)
	ResolveMention(ctx context.Context, mentionID uuid.UUID, decision model.Resolution) error
	CreateResolutionDecision(ctx context.Context, d model.ResolutionDecision) (uuid.UUID, error)
	AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error)
}

// Resolver runs the per-mention resolution pipeline over st, using
// blocker to narrow candidates before scoring.
type Resolver struct {
	store   Store
	blocker *blocking.Blocker
	cfg     *config.CoreConfig
	log     *zap.Logger
}

func New(st Store, blocker *blocking.Blocker, cfg *config.CoreConfig, log *zap.Logger) *Resolver {
	return &Resolver{store: st, blocker: blocker, cfg: cfg, log: log}
}

// Resolve runs the full pipeline for one mention, retrying the
// transactional portion a bounded number of times on
// CONCURRENCY_CONFLICT (spec §5/§7) before giving up.
func (r *Resolver) Resolve(ctx context.Context, mention model.Mention) (*model.ResolutionDecision, error) {
	op := func() (*model.ResolutionDecision, error) {
		decision, err := r.resolveOnce(ctx, mention)
		if err != nil && coreerrors.GetType(err) == coreerrors.ErrorTypeConcurrency {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return decision, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.Retry.InitialBackoff
	bo.MaxInterval = r.cfg.Retry.MaxBackoff

	return backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(r.cfg.Retry.MaxAttempts)))
}

func (r *Resolver) resolveOnce(ctx context.Context, mention model.Mention) (*model.ResolutionDecision, error) {
	timer := metrics.NewTimer()
	defer timer.RecordResolution()

	entityType := entityTypeFor(mention.MentionType)
	mctx := mentionContext(mention)

	candidateIDs, err := r.blocker.Candidates(ctx, blocking.CandidateInput{
		EntityType:     entityType,
		Identifiers:    mention.ExtractedIdentifiers,
		NormalizedName: mctx.NormalizedName,
		BirthYear:      mctx.BirthYear,
		PostalCode:     mctx.Address.PostalCode,
	})
	if err != nil {
		return nil, err
	}

	if len(candidateIDs) == 0 {
		return r.createAndBind(ctx, mention, entityType, mctx)
	}

	scored, err := r.scoreCandidates(ctx, entityType, mctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	thresholds := thresholdsFor(r.cfg.ResolutionThresholds, entityType)
	best := bestOf(scored)

	decision := model.ResolutionDecision{
		Mention:    mention.ID,
		EntityType: entityType,
		Candidates: scored,
		CreatedAt:  timeNow(),
	}

	switch {
	case best.Score >= thresholds.Auto:
		decision.Decision = model.ResolutionStatusAutoMatched
		decision.Status = model.ReviewStatusHumanMatched // terminal, never queued
		decision.Reason = "best candidate score met auto-match threshold"
		if err := r.attachMention(ctx, mention, best.Entity); err != nil {
			return nil, err
		}
		if err := r.store.ResolveMention(ctx, mention.ID, model.Resolution{
			Status: model.ResolutionStatusAutoMatched, ResolvedEntity: &best.Entity,
			Confidence: best.Score, Method: "AUTO_MATCH", Timestamp: ptrTime(timeNow()),
		}); err != nil {
			return nil, err
		}
		r.auditDecision(ctx, mention, decision, best.Entity)
		metrics.RecordResolution(string(decision.Decision))
		return &decision, nil

	case best.Score >= thresholds.ReviewMin:
		decision.Decision = model.ResolutionStatusPending
		decision.Status = model.ReviewStatusPendingReview
		decision.Reason = "best candidate score fell in the human-review band"
		id, err := r.store.CreateResolutionDecision(ctx, decision)
		if err != nil {
			return nil, err
		}
		decision.ID = id
		r.auditDecision(ctx, mention, decision, uuid.Nil)
		metrics.RecordResolution(string(decision.Decision))
		return &decision, nil

	default:
		decision.Decision = model.ResolutionStatusAutoRejected
		decision.Status = model.ReviewStatusHumanRejected // terminal, not queued
		decision.Reason = "every candidate scored below the review floor"
		newDecision, err := r.createAndBind(ctx, mention, entityType, mctx)
		if err != nil {
			return nil, err
		}
		newDecision.Candidates = scored
		newDecision.Reason = decision.Reason
		return newDecision, nil
	}
}

// createAndBind mints a new entity from the mention's own attributes
// and binds the mention to it, used both when blocking yields no
// candidates and when every candidate is rejected.
func (r *Resolver) createAndBind(ctx context.Context, mention model.Mention, entityType model.EntityType, mctx entityContext) (*model.ResolutionDecision, error) {
	entityID, err := r.store.CreateEntity(ctx, entityType, canonicalNameFor(mention, mctx), 1.0, mention.Provenance)
	if err != nil {
		return nil, err
	}
	if err := r.seedIdentifiers(ctx, mention, entityID); err != nil {
		return nil, err
	}
	if err := r.blocker.Index(ctx, entityID, entityType, mctx.NormalizedName, mctx.BirthYear, mctx.Address.PostalCode); err != nil {
		r.log.Warn("blocking index update failed after entity creation", zap.Error(err), zap.String("entity", entityID.String()))
	}
	if err := r.store.ResolveMention(ctx, mention.ID, model.Resolution{
		Status: model.ResolutionStatusAutoRejected, ResolvedEntity: &entityID,
		Confidence: 1.0, Method: "NEW_ENTITY", Timestamp: ptrTime(timeNow()),
	}); err != nil {
		return nil, err
	}

	decision := &model.ResolutionDecision{
		Mention: mention.ID, EntityType: entityType,
		Decision: model.ResolutionStatusAutoRejected, Status: model.ReviewStatusHumanRejected,
		Reason: "no blocking candidates; new entity created", CreatedAt: timeNow(),
	}
	r.auditDecision(ctx, mention, *decision, entityID)
	metrics.RecordResolution(string(decision.Decision))
	return decision, nil
}

func (r *Resolver) seedIdentifiers(ctx context.Context, mention model.Mention, entity uuid.UUID) error {
	for idType, value := range mention.ExtractedIdentifiers {
		if err := r.store.AddIdentifier(ctx, entity, idType, value, 1.0, mention.Provenance); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) auditDecision(ctx context.Context, mention model.Mention, decision model.ResolutionDecision, entity uuid.UUID) {
	_, err := r.store.AppendAudit(ctx, model.AuditEntry{
		Timestamp: timeNow(),
		EventType: "RESOLUTION_DECISION",
		Actor:     model.Actor{Type: model.ActorTypeSystem, ID: "resolver"},
		Target:    model.Target{Type: "mention", ID: mention.ID},
		Payload: map[string]any{
			"decision": string(decision.Decision),
			"reason":   decision.Reason,
			"entity":   entity.String(),
		},
	})
	if err != nil {
		r.log.Error("failed to append audit entry for resolution decision", zap.Error(err), zap.String("mention", mention.ID.String()))
	}
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

func thresholdsFor(t config.ResolutionThresholds, entityType model.EntityType) config.Thresholds {
	switch entityType {
	case model.EntityTypePerson:
		return t.Person
	case model.EntityTypeCompany:
		return t.Company
	case model.EntityTypeAddress:
		return t.Address
	default:
		return config.Thresholds{Auto: 1.01, ReviewMin: 1.01} // events are never auto/review matched
	}
}

func bestOf(scored []model.CandidateScore) model.CandidateScore {
	best := model.CandidateScore{Score: -1}
	for _, c := range scored {
		if c.Score > best.Score {
			best = c
		}
	}
	return best
}

// scoreCandidates builds each candidate's feature vector and score.
// It sorts candidateIDs by id in place first, so the output order is
// stable and bestOf, which only replaces on a strictly greater score,
// keeps the lowest-sorted id among equal scores.
func (r *Resolver) scoreCandidates(ctx context.Context, entityType model.EntityType, mctx entityContext, candidateIDs []uuid.UUID) ([]model.CandidateScore, error) {
	sortUUIDs(candidateIDs)

	weights := scoring.WeightsFor(r.cfg.FeatureWeights, string(entityType))
	out := make([]model.CandidateScore, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		cctx, err := r.candidateContext(ctx, entityType, id)
		if err != nil {
			return nil, err
		}
		fs := buildFeatureSet(entityType, mctx, cctx)
		out = append(out, model.CandidateScore{
			Entity:   id,
			Score:    scoring.Score(fs, weights),
			Features: fs,
		})
	}
	return out, nil
}

func timeNow() time.Time { return time.Now().UTC() }
func ptrTime(t time.Time) *time.Time { return &t }
