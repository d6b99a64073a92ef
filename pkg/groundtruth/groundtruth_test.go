package groundtruth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

type fakeGroundTruthStore struct {
	pairs    []model.GroundTruthPair
	mentions map[uuid.UUID]model.Mention
	entities map[uuid.UUID]model.Entity
}

func newFakeGroundTruthStore() *fakeGroundTruthStore {
	return &fakeGroundTruthStore{
		mentions: map[uuid.UUID]model.Mention{},
		entities: map[uuid.UUID]model.Entity{},
	}
}

func (f *fakeGroundTruthStore) ListGroundTruthPairs(ctx context.Context) ([]model.GroundTruthPair, error) {
	return f.pairs, nil
}

func (f *fakeGroundTruthStore) GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error) {
	return f.mentions[id], nil
}

func (f *fakeGroundTruthStore) GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error) {
	return f.entities[id], nil
}

func TestRunScoresTruePositiveOnMatchingCluster(t *testing.T) {
	st := newFakeGroundTruthStore()
	entity := uuid.New()
	mentionID := uuid.New()
	st.entities[entity] = model.Entity{ID: entity, Status: model.EntityStatusActive}
	st.mentions[mentionID] = model.Mention{ID: mentionID, Resolution: model.Resolution{ResolvedEntity: &entity}}
	st.pairs = []model.GroundTruthPair{{ID: uuid.New(), MentionID: mentionID, ExpectedEntity: &entity, Outcome: model.GroundTruthMatch}}

	report, err := New(st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TruePositives != 1 || report.FalseNegatives != 0 {
		t.Errorf("report = %+v, want 1 true positive", report)
	}
	if report.Sensitivity != 1.0 {
		t.Errorf("Sensitivity = %v, want 1.0", report.Sensitivity)
	}
}

func TestRunFollowsMergedIntoChainBeforeComparing(t *testing.T) {
	st := newFakeGroundTruthStore()
	canonical := uuid.New()
	merged := uuid.New()
	mentionID := uuid.New()
	st.entities[canonical] = model.Entity{ID: canonical, Status: model.EntityStatusActive}
	st.entities[merged] = model.Entity{ID: merged, Status: model.EntityStatusMerged, MergedInto: &canonical}
	st.mentions[mentionID] = model.Mention{ID: mentionID, Resolution: model.Resolution{ResolvedEntity: &merged}}
	st.pairs = []model.GroundTruthPair{{ID: uuid.New(), MentionID: mentionID, ExpectedEntity: &canonical, Outcome: model.GroundTruthMatch}}

	report, err := New(st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TruePositives != 1 {
		t.Errorf("report = %+v, want the merged resolution to canonicalize to a match", report)
	}
}

func TestRunScoresFalsePositiveOnUnexpectedMatch(t *testing.T) {
	st := newFakeGroundTruthStore()
	entity := uuid.New()
	mentionID := uuid.New()
	st.entities[entity] = model.Entity{ID: entity, Status: model.EntityStatusActive}
	st.mentions[mentionID] = model.Mention{ID: mentionID, Resolution: model.Resolution{ResolvedEntity: &entity}}
	st.pairs = []model.GroundTruthPair{{ID: uuid.New(), MentionID: mentionID, Outcome: model.GroundTruthNoMatch}}

	report, err := New(st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.FalsePositives != 1 || report.TrueNegatives != 0 {
		t.Errorf("report = %+v, want 1 false positive", report)
	}
	if len(report.Mismatches) != 1 {
		t.Errorf("Mismatches = %+v, want one recorded mismatch", report.Mismatches)
	}
}

func TestRunScoresTrueNegativeOnCorrectlyRejectedMention(t *testing.T) {
	st := newFakeGroundTruthStore()
	mentionID := uuid.New()
	st.mentions[mentionID] = model.Mention{ID: mentionID, Resolution: model.Resolution{}}
	st.pairs = []model.GroundTruthPair{{ID: uuid.New(), MentionID: mentionID, Outcome: model.GroundTruthNoMatch}}

	report, err := New(st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TrueNegatives != 1 || report.Specificity != 1.0 {
		t.Errorf("report = %+v, want 1 true negative and specificity 1.0", report)
	}
}
