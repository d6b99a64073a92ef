// Package scheduler orchestrates the core's three recurring batch
// jobs — ingestion/resolution, derivation, and ground-truth scoring —
// on top of github.com/robfig/cron/v3. Every job is built to be
// resumable: ingestion only ever claims PENDING mentions (an
// in-flight or crashed run leaves no partial state beyond what's
// already committed), derivation supersedes facts idempotently, and a
// job overrunning its deadline is cancelled via context rather than
// left to run unbounded into the next tick.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/derivation"
	"github.com/fraudwatch/sovereign-core/pkg/groundtruth"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// Store is the subset of *store.Store the scheduler depends on
// directly (resolution/derivation/patterns own the rest through their
// own Store interfaces).
type Store interface {
	PendingMentions(ctx context.Context, limit int) ([]model.Mention, error)
	GetMention(ctx context.Context, id uuid.UUID) (model.Mention, error)
	CountPendingReview(ctx context.Context) (int, error)
}

// GroundTruthEvaluator is the subset of *groundtruth.Evaluator the
// nightly scoring job drives. Nil disables the job, since a fresh
// deployment may not have any labeled pairs loaded yet.
type GroundTruthEvaluator interface {
	Run(ctx context.Context) (groundtruth.Report, error)
}

// Resolver is the subset of *resolver.Resolver the ingestion job
// drives.
type Resolver interface {
	Resolve(ctx context.Context, mention model.Mention) (*model.ResolutionDecision, error)
}

// DerivationEngine is the subset of *derivation.Engine the nightly job
// drives. The dependency edge runs one way — pkg/derivation never
// imports pkg/scheduler — so this stays a thin orchestration wrapper
// rather than a cycle.
type DerivationEngine interface {
	Run(ctx context.Context) (derivation.Result, error)
}

// AlertEvaluator is the subset of *patterns.Engine the ingestion job
// drives to emit streaming alerts on freshly resolved companies.
type AlertEvaluator interface {
	EvaluateNewCompany(ctx context.Context, company uuid.UUID) (*model.Alert, error)
}

// Scheduler wires the batch jobs to a cron runtime.
type Scheduler struct {
	cron        *cron.Cron
	store       Store
	resolver    Resolver
	derivation  DerivationEngine
	alerts      AlertEvaluator
	groundTruth GroundTruthEvaluator
	cfg         config.DerivationConfig
	batchSize   int
	log         *zap.Logger
}

type Option func(*Scheduler)

func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batchSize = n }
}

// WithGroundTruthEvaluator enables the nightly ground-truth scoring
// job. Without it, ground_truth_sensitivity/specificity stay unset.
func WithGroundTruthEvaluator(e GroundTruthEvaluator) Option {
	return func(s *Scheduler) { s.groundTruth = e }
}

func New(store Store, resolver Resolver, derivation DerivationEngine, alerts AlertEvaluator, cfg config.DerivationConfig, log *zap.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		cron:       cron.New(),
		store:      store,
		resolver:   resolver,
		derivation: derivation,
		alerts:     alerts,
		cfg:        cfg,
		batchSize:  500,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ingestionSchedule runs the resolution pass far more often than
// derivation, since mentions should resolve close to real time; the
// derivation schedule is the expensive nightly batch from
// cfg.Schedule.
const ingestionSchedule = "@every 30s"

// Start registers the recurring jobs and begins the cron runtime. It
// does not block; call Stop to drain in-flight jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(ingestionSchedule, func() { s.runIngestion(ctx) }); err != nil {
		return err
	}
	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "0 2 * * *"
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.runDerivation(ctx) }); err != nil {
		return err
	}
	if s.groundTruth != nil {
		if _, err := s.cron.AddFunc(schedule, func() { s.runGroundTruth(ctx) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop blocks until any job currently running completes, then halts
// the cron runtime.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// RunIngestionOnce drives one ingestion/resolution batch synchronously,
// for callers (tests, a manual trigger endpoint) that don't want to
// wait on the cron schedule.
func (s *Scheduler) RunIngestionOnce(ctx context.Context) (int, error) {
	return s.runIngestion(ctx)
}

func (s *Scheduler) runIngestion(ctx context.Context) (int, error) {
	mentions, err := s.store.PendingMentions(ctx, s.batchSize)
	if err != nil {
		s.log.Error("ingestion batch: failed to fetch pending mentions", zap.Error(err))
		return 0, err
	}

	resolved := 0
	for _, mention := range mentions {
		decision, err := s.resolver.Resolve(ctx, mention)
		if err != nil {
			s.log.Warn("ingestion batch: resolution failed for mention, leaving PENDING for the next run",
				zap.String("mention", mention.ID.String()), zap.Error(err))
			continue
		}
		resolved++

		if decision.EntityType != model.EntityTypeCompany || s.alerts == nil {
			continue
		}
		refreshed, err := s.store.GetMention(ctx, mention.ID)
		if err != nil || refreshed.Resolution.ResolvedEntity == nil {
			continue
		}
		if _, err := s.alerts.EvaluateNewCompany(ctx, *refreshed.Resolution.ResolvedEntity); err != nil {
			s.log.Warn("ingestion batch: streaming alert evaluation failed",
				zap.String("entity", refreshed.Resolution.ResolvedEntity.String()), zap.Error(err))
		}
	}

	if depth, err := s.store.CountPendingReview(ctx); err != nil {
		s.log.Warn("ingestion batch: failed to read review queue depth", zap.Error(err))
	} else {
		metrics.ReviewQueueDepth.Set(float64(depth))
	}

	s.log.Info("ingestion batch complete", zap.Int("pending", len(mentions)), zap.Int("resolved", resolved))
	return resolved, nil
}

// RunDerivationOnce drives one derivation pass synchronously, bounded
// by cfg.Deadline.
func (s *Scheduler) RunDerivationOnce(ctx context.Context) (derivation.Result, error) {
	return s.runDerivation(ctx)
}

func (s *Scheduler) runDerivation(ctx context.Context) (derivation.Result, error) {
	deadline := s.cfg.Deadline
	if deadline <= 0 {
		deadline = 4 * time.Hour
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, err := s.derivation.Run(runCtx)
	if err != nil {
		s.log.Error("derivation run failed", zap.Error(err))
		return result, err
	}
	s.log.Info("derivation run complete",
		zap.Int("persons", result.PersonsProcessed), zap.Int("companies", result.CompaniesProcessed),
		zap.Int("addresses", result.AddressesProcessed), zap.Int("superseded", result.FactsSuperseded),
		zap.Bool("cancelled", result.Cancelled))
	return result, nil
}

// RunGroundTruthOnce drives one ground-truth scoring pass
// synchronously. It is a no-op if no evaluator was configured.
func (s *Scheduler) RunGroundTruthOnce(ctx context.Context) (groundtruth.Report, error) {
	return s.runGroundTruth(ctx)
}

func (s *Scheduler) runGroundTruth(ctx context.Context) (groundtruth.Report, error) {
	if s.groundTruth == nil {
		return groundtruth.Report{}, nil
	}
	report, err := s.groundTruth.Run(ctx)
	if err != nil {
		s.log.Error("ground-truth evaluation failed", zap.Error(err))
		return report, err
	}
	metrics.SetGroundTruthScores(report.Sensitivity, report.Specificity)
	s.log.Info("ground-truth evaluation complete",
		zap.Int("pairs", report.TotalPairs), zap.Float64("sensitivity", report.Sensitivity),
		zap.Float64("specificity", report.Specificity), zap.Bool("meets_targets", report.MeetsTargets))
	return report, nil
}
