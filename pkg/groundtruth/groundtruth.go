// Package groundtruth measures the resolver's real-world accuracy
// against a held-out set of human-labeled mention-to-entity pairs
// (spec §4.11): for each pair, it asks whether the mention's actual
// resolution landed in the same SAME_AS cluster as expected, and rolls
// the results up into sensitivity and specificity.
package groundtruth

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// Store is the subset of *store.Store the evaluator depends on.
type Store interface {
	ListGroundTruthPairs(ctx context.Context) ([]model.GroundTruthPair, error)
	GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error)
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
}

// Report summarizes one evaluation pass over the labeled set.
type Report struct {
	TotalPairs         int
	TruePositives      int
	FalseNegatives     int
	TrueNegatives      int
	FalsePositives     int
	Sensitivity        float64 // TP / (TP + FN): correctly linked true matches
	Specificity        float64 // TN / (TN + FP): correctly rejected non-matches
	MeetsTargets       bool
	Mismatches         []Mismatch
}

// Mismatch records one labeled pair whose actual resolution disagreed
// with its expected outcome, for manual triage.
type Mismatch struct {
	PairID    uuid.UUID
	MentionID uuid.UUID
	Expected  model.GroundTruthOutcome
	Got       string
}

const (
	sensitivityTarget = 0.90
	specificityTarget = 0.995
)

type Evaluator struct {
	store Store
}

func New(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Run scores every pair in the labeled set against the resolver's
// already-recorded resolution for each pair's mention. It does not
// invoke the resolver itself — it evaluates decisions pkg/resolver
// already made, which lets the evaluation set be scored repeatably
// without re-running resolution.
func (e *Evaluator) Run(ctx context.Context) (Report, error) {
	pairs, err := e.store.ListGroundTruthPairs(ctx)
	if err != nil {
		return Report{}, err
	}

	var r Report
	r.TotalPairs = len(pairs)

	for _, pair := range pairs {
		mention, err := e.store.GetMention(ctx, pair.MentionID)
		if err != nil {
			continue
		}

		var actualCanonical *uuid.UUID
		if mention.Resolution.ResolvedEntity != nil {
			canonical, err := e.canonicalize(ctx, *mention.Resolution.ResolvedEntity)
			if err != nil {
				continue
			}
			actualCanonical = &canonical
		}

		var expectedCanonical *uuid.UUID
		if pair.ExpectedEntity != nil {
			canonical, err := e.canonicalize(ctx, *pair.ExpectedEntity)
			if err != nil {
				continue
			}
			expectedCanonical = &canonical
		}

		matched := actualCanonical != nil && expectedCanonical != nil && *actualCanonical == *expectedCanonical

		switch pair.Outcome {
		case model.GroundTruthMatch:
			if matched {
				r.TruePositives++
			} else {
				r.FalseNegatives++
				r.Mismatches = append(r.Mismatches, mismatch(pair, actualCanonical))
			}
		case model.GroundTruthNoMatch:
			// A rejected mention is bound to a newly minted entity rather
			// than an existing one, so it counts as a correct rejection.
			rejected := mention.Resolution.Status == model.ResolutionStatusAutoRejected ||
				mention.Resolution.Status == model.ResolutionStatusHumanRejected
			if actualCanonical == nil || rejected {
				r.TrueNegatives++
			} else {
				r.FalsePositives++
				r.Mismatches = append(r.Mismatches, mismatch(pair, actualCanonical))
			}
		}
	}

	if r.TruePositives+r.FalseNegatives > 0 {
		r.Sensitivity = float64(r.TruePositives) / float64(r.TruePositives+r.FalseNegatives)
	}
	if r.TrueNegatives+r.FalsePositives > 0 {
		r.Specificity = float64(r.TrueNegatives) / float64(r.TrueNegatives+r.FalsePositives)
	}
	r.MeetsTargets = r.Sensitivity >= sensitivityTarget && r.Specificity >= specificityTarget

	return r, nil
}

func mismatch(pair model.GroundTruthPair, actual *uuid.UUID) Mismatch {
	got := "NO_MATCH"
	if actual != nil {
		got = actual.String()
	}
	return Mismatch{PairID: pair.ID, MentionID: pair.MentionID, Expected: pair.Outcome, Got: got}
}

// canonicalize follows an entity's merged_into pointer to its ACTIVE
// head. Merges always target an existing ACTIVE canonical (see
// pkg/store's own canonicalOf), so this terminates in at most a
// handful of hops; hopCap guards against a corrupted chain rather than
// a legitimate long one.
func (e *Evaluator) canonicalize(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const hopCap = 16
	current := id
	for i := 0; i < hopCap; i++ {
		entity, err := e.store.GetEntity(ctx, current)
		if err != nil {
			return uuid.Nil, err
		}
		if entity.Status != model.EntityStatusMerged || entity.MergedInto == nil {
			return entity.ID, nil
		}
		current = *entity.MergedInto
	}
	return current, nil
}
