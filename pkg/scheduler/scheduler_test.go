package scheduler

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/derivation"
	"github.com/fraudwatch/sovereign-core/pkg/groundtruth"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

type fakeSchedulerStore struct {
	pending      []model.Mention
	mentions     map[uuid.UUID]model.Mention
	pendingCount int
}

func (f *fakeSchedulerStore) PendingMentions(ctx context.Context, limit int) ([]model.Mention, error) {
	return f.pending, nil
}

func (f *fakeSchedulerStore) GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error) {
	return f.mentions[id], nil
}

func (f *fakeSchedulerStore) CountPendingReview(ctx context.Context) (int, error) {
	return f.pendingCount, nil
}

type fakeResolver struct {
	decisions map[uuid.UUID]model.ResolutionDecision
	calls     int
}

func (f *fakeResolver) Resolve(ctx context.Context, mention model.Mention) (*model.ResolutionDecision, error) {
	f.calls++
	d := f.decisions[mention.ID]
	return &d, nil
}

type fakeDerivationEngine struct {
	ran bool
}

func (f *fakeDerivationEngine) Run(ctx context.Context) (derivation.Result, error) {
	f.ran = true
	return derivation.Result{PersonsProcessed: 2}, nil
}

type fakeAlertEvaluator struct {
	evaluated []uuid.UUID
}

func (f *fakeAlertEvaluator) EvaluateNewCompany(ctx context.Context, company uuid.UUID) (*model.Alert, error) {
	f.evaluated = append(f.evaluated, company)
	return nil, nil
}

func TestRunIngestionOnceResolvesPendingMentionsAndEvaluatesNewCompanies(t *testing.T) {
	personMention := uuid.New()
	companyMention := uuid.New()
	companyEntity := uuid.New()

	st := &fakeSchedulerStore{
		pending: []model.Mention{
			{ID: personMention, MentionType: model.MentionTypePerson},
			{ID: companyMention, MentionType: model.MentionTypeCompany},
		},
		mentions: map[uuid.UUID]model.Mention{
			companyMention: {ID: companyMention, Resolution: model.Resolution{ResolvedEntity: &companyEntity}},
		},
	}
	res := &fakeResolver{decisions: map[uuid.UUID]model.ResolutionDecision{
		personMention:  {EntityType: model.EntityTypePerson},
		companyMention: {EntityType: model.EntityTypeCompany},
	}}
	alerts := &fakeAlertEvaluator{}

	s := New(st, res, &fakeDerivationEngine{}, alerts, config.DefaultDerivationConfig(), nil)
	resolved, err := s.RunIngestionOnce(context.Background())
	if err != nil {
		t.Fatalf("RunIngestionOnce() error = %v", err)
	}
	if resolved != 2 || res.calls != 2 {
		t.Errorf("resolved = %d, calls = %d, want 2 and 2", resolved, res.calls)
	}
	if len(alerts.evaluated) != 1 || alerts.evaluated[0] != companyEntity {
		t.Errorf("alerts.evaluated = %v, want exactly [%v]", alerts.evaluated, companyEntity)
	}
}

type fakeGroundTruthEvaluator struct {
	ran    bool
	report groundtruth.Report
}

func (f *fakeGroundTruthEvaluator) Run(ctx context.Context) (groundtruth.Report, error) {
	f.ran = true
	return f.report, nil
}

func TestRunGroundTruthOnceDrivesTheEvaluatorAndSetsGauges(t *testing.T) {
	gt := &fakeGroundTruthEvaluator{report: groundtruth.Report{TotalPairs: 10, Sensitivity: 0.93, Specificity: 0.997, MeetsTargets: true}}
	s := New(&fakeSchedulerStore{}, &fakeResolver{decisions: map[uuid.UUID]model.ResolutionDecision{}}, &fakeDerivationEngine{}, nil,
		config.DefaultDerivationConfig(), nil, WithGroundTruthEvaluator(gt))

	report, err := s.RunGroundTruthOnce(context.Background())
	if err != nil {
		t.Fatalf("RunGroundTruthOnce() error = %v", err)
	}
	if !gt.ran || report.TotalPairs != 10 {
		t.Errorf("report = %+v, ran = %v, want the ground-truth evaluator to have run", report, gt.ran)
	}
}

func TestRunGroundTruthOnceIsNoOpWithoutAnEvaluator(t *testing.T) {
	s := New(&fakeSchedulerStore{}, &fakeResolver{decisions: map[uuid.UUID]model.ResolutionDecision{}}, &fakeDerivationEngine{}, nil,
		config.DefaultDerivationConfig(), nil)

	report, err := s.RunGroundTruthOnce(context.Background())
	if err != nil {
		t.Fatalf("RunGroundTruthOnce() error = %v", err)
	}
	if report.TotalPairs != 0 {
		t.Errorf("report = %+v, want zero-value report when no evaluator is configured", report)
	}
}

func TestRunDerivationOnceDrivesTheEngine(t *testing.T) {
	eng := &fakeDerivationEngine{}
	s := New(&fakeSchedulerStore{}, &fakeResolver{decisions: map[uuid.UUID]model.ResolutionDecision{}}, eng, nil, config.DefaultDerivationConfig(), nil)

	result, err := s.RunDerivationOnce(context.Background())
	if err != nil {
		t.Fatalf("RunDerivationOnce() error = %v", err)
	}
	if !eng.ran || result.PersonsProcessed != 2 {
		t.Errorf("result = %+v, ran = %v, want the derivation engine to have run", result, eng.ran)
	}
}
