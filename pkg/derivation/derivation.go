// Package derivation implements the nightly/batch recomputation engine
// over the fact store: risk scores, director velocity, shell
// indicators, network clusters, and the registration-hub address
// attribute. Every run is deterministic given a fact-store snapshot
// and tagged with rule_name@version; re-running after a cancellation
// is a no-op for subjects whose derived value hasn't changed.
package derivation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

// Config is the derivation engine's tunable parameters. It reuses
// internal/config.DerivationConfig rather than duplicating the same
// factor-weight tables and schedule under a second name.
type Config = config.DerivationConfig

// Store is the subset of *store.Store the derivation engine depends
// on, declared here so the engine can be exercised against an
// in-memory fake instead of a live Postgres instance.
type Store interface {
	ListActiveEntityIDs(ctx context.Context, entityType model.EntityType) ([]uuid.UUID, error)
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error)
	Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error)
	AddFact(ctx context.Context, f model.Fact) (uuid.UUID, error)
	SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error)
	AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error)
}

// RuleVersion tags every fact this engine writes.
const RuleVersion = "derivation@1"

// Engine runs the four derivation passes over partitioned subsets of
// the entity population.
type Engine struct {
	store Store
	cfg   Config
	log   *logrus.Logger
	now   func() time.Time
}

func New(store Store, cfg Config, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: store, cfg: cfg, log: log, now: time.Now}
}

// Result summarizes one completed (or partially completed, if ctx was
// cancelled) derivation run.
type Result struct {
	PersonsProcessed  int
	CompaniesProcessed int
	AddressesProcessed int
	FactsSuperseded   int
	FactsUnchanged    int
	Cancelled         bool
}

// Run partitions each entity type's active population into
// cfg.WorkerPartitions disjoint shards by hash(entity_id) mod N and
// processes each shard concurrently. A cancelled context stops
// launching new partition work and reports Cancelled=true; partitions
// already committed remain committed, since each partition's work
// commits per-entity rather than in one large transaction.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result
	start := e.now()

	persons, err := e.store.ListActiveEntityIDs(ctx, model.EntityTypePerson)
	if err != nil {
		return res, err
	}
	companies, err := e.store.ListActiveEntityIDs(ctx, model.EntityTypeCompany)
	if err != nil {
		return res, err
	}
	addresses, err := e.store.ListActiveEntityIDs(ctx, model.EntityTypeAddress)
	if err != nil {
		return res, err
	}

	n := e.cfg.WorkerPartitions
	if n <= 0 {
		n = 1
	}

	personCounts := e.runPartitioned(ctx, persons, n, e.derivePerson)
	companyCounts := e.runPartitioned(ctx, companies, n, e.deriveCompany)
	addressCounts := e.runPartitioned(ctx, addresses, n, e.deriveAddress)

	for _, c := range []partitionCounts{personCounts, companyCounts, addressCounts} {
		res.FactsSuperseded += c.superseded
		res.FactsUnchanged += c.unchanged
		if c.cancelled {
			res.Cancelled = true
		}
	}
	res.PersonsProcessed = personCounts.processed
	res.CompaniesProcessed = companyCounts.processed
	res.AddressesProcessed = addressCounts.processed

	clustersWritten, err := e.DeriveClusters(ctx, persons, companies, addresses)
	if err != nil {
		if ctx.Err() != nil {
			res.Cancelled = true
		} else {
			return res, err
		}
	}
	res.FactsSuperseded += clustersWritten

	e.log.WithFields(logrus.Fields{
		"persons":    res.PersonsProcessed,
		"companies":  res.CompaniesProcessed,
		"addresses":  res.AddressesProcessed,
		"superseded": res.FactsSuperseded,
		"unchanged":  res.FactsUnchanged,
		"cancelled":  res.Cancelled,
		"duration":   e.now().Sub(start).String(),
	}).Info("derivation run complete")

	_, _ = e.store.AppendAudit(ctx, model.AuditEntry{
		EventType: "DERIVATION_JOB",
		Timestamp: e.now(),
		Actor:     model.Actor{Type: model.ActorTypeSystem, ID: "derivation.engine"},
		Target:    model.Target{Type: "derivation_run", ID: uuid.Nil},
		Payload: map[string]any{
			"persons": res.PersonsProcessed, "companies": res.CompaniesProcessed,
			"addresses": res.AddressesProcessed, "superseded": res.FactsSuperseded,
			"unchanged": res.FactsUnchanged, "cancelled": res.Cancelled,
			"rule_version": RuleVersion,
		},
	})

	metrics.RecordDerivationRun(e.now().Sub(start), res.PersonsProcessed, res.CompaniesProcessed,
		res.AddressesProcessed, res.FactsSuperseded, res.FactsUnchanged)

	return res, nil
}

type partitionCounts struct {
	processed, superseded, unchanged int
	cancelled                        bool
}

type deriveFn func(ctx context.Context, id uuid.UUID) (superseded bool, err error)

// runPartitioned hashes ids into n partitions and runs one goroutine
// per non-empty partition, each processing its entities in id order
// (a stable checkpoint position if the run is cancelled mid-shard).
func (e *Engine) runPartitioned(ctx context.Context, ids []uuid.UUID, n int, fn deriveFn) partitionCounts {
	shards := make([][]uuid.UUID, n)
	for _, id := range ids {
		p := partitionOf(id, n)
		shards[p] = append(shards[p], id)
	}

	resultsCh := make(chan partitionCounts, n)
	for _, shard := range shards {
		shard := shard
		go func() {
			var pc partitionCounts
			for _, id := range shard {
				select {
				case <-ctx.Done():
					pc.cancelled = true
					resultsCh <- pc
					return
				default:
				}
				changed, err := fn(ctx, id)
				if err != nil {
					e.log.WithError(err).WithField("entity", id.String()).Warn("derivation failed for entity, skipping")
					continue
				}
				pc.processed++
				if changed {
					pc.superseded++
				} else {
					pc.unchanged++
				}
			}
			resultsCh <- pc
		}()
	}

	var total partitionCounts
	for range shards {
		pc := <-resultsCh
		total.processed += pc.processed
		total.superseded += pc.superseded
		total.unchanged += pc.unchanged
		if pc.cancelled {
			total.cancelled = true
		}
	}
	return total
}

func partitionOf(id uuid.UUID, n int) int {
	if n <= 1 {
		return 0
	}
	var h uint32
	for _, b := range id {
		h = h*31 + uint32(b)
	}
	return int(h % uint32(n))
}
