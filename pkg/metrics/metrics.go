// Package metrics exposes the core's Prometheus instrumentation:
// resolution outcomes, derivation throughput, alert emission, audit
// appends, and circuit-breaker trips. Every collector is a package
// var registered against the default registry, mirroring the
// teacher's own metrics package shape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MentionsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentions_resolved_total",
		Help: "Mentions resolved, partitioned by outcome.",
	}, []string{"outcome"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resolution_duration_seconds",
		Help:    "Time to resolve a single mention, from candidate lookup through the final decision.",
		Buckets: prometheus.DefBuckets,
	})

	ReviewQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "review_queue_depth",
		Help: "Resolution decisions currently awaiting human review.",
	})

	DerivationRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "derivation_run_duration_seconds",
		Help:    "Wall-clock time of a complete derivation run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	DerivationFactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "derivation_facts_total",
		Help: "Derived facts written, partitioned by whether the value changed.",
	}, []string{"outcome"})

	DerivationEntitiesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "derivation_entities_processed_total",
		Help: "Entities processed by a derivation run, partitioned by entity type.",
	}, []string{"entity_type"})

	AlertsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_emitted_total",
		Help: "Streaming alerts emitted by the pattern engine, partitioned by rule.",
	}, []string{"rule"})

	AuditAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_appends_total",
		Help: "Audit log entries appended, partitioned by event type.",
	}, []string{"event_type"})

	AuditChainBrokenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_chain_broken_total",
		Help: "Times an audit chain verification pass found a break.",
	})

	CircuitBreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_trips_total",
		Help: "Circuit breaker state transitions into the open state, partitioned by breaker name.",
	}, []string{"breaker"})

	GroundTruthSensitivity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ground_truth_sensitivity",
		Help: "Most recent ground-truth evaluation's sensitivity (true positive rate).",
	})

	GroundTruthSpecificity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ground_truth_specificity",
		Help: "Most recent ground-truth evaluation's specificity (true negative rate).",
	})
)

// RecordResolution records one mention's resolution outcome.
func RecordResolution(outcome string) {
	MentionsResolvedTotal.WithLabelValues(outcome).Inc()
}

// RecordDerivationRun records one completed derivation run's duration
// and per-entity-type throughput.
func RecordDerivationRun(duration time.Duration, persons, companies, addresses, superseded, unchanged int) {
	DerivationRunDuration.Observe(duration.Seconds())
	DerivationEntitiesProcessedTotal.WithLabelValues("PERSON").Add(float64(persons))
	DerivationEntitiesProcessedTotal.WithLabelValues("COMPANY").Add(float64(companies))
	DerivationEntitiesProcessedTotal.WithLabelValues("ADDRESS").Add(float64(addresses))
	DerivationFactsTotal.WithLabelValues("superseded").Add(float64(superseded))
	DerivationFactsTotal.WithLabelValues("unchanged").Add(float64(unchanged))
}

// RecordAlert records one alert emitted under ruleName.
func RecordAlert(ruleName string) {
	AlertsEmittedTotal.WithLabelValues(ruleName).Inc()
}

// RecordAudit records one audit entry of eventType appended to the
// chain.
func RecordAudit(eventType string) {
	AuditAppendsTotal.WithLabelValues(eventType).Inc()
}

// RecordAuditChainBroken records a failed chain-verification pass.
func RecordAuditChainBroken() {
	AuditChainBrokenTotal.Inc()
}

// RecordCircuitBreakerTrip records breaker transitioning to open.
func RecordCircuitBreakerTrip(breaker string) {
	CircuitBreakerTripsTotal.WithLabelValues(breaker).Inc()
}

// SetGroundTruthScores updates the two gauges pkg/groundtruth's most
// recent Report produced.
func SetGroundTruthScores(sensitivity, specificity float64) {
	GroundTruthSensitivity.Set(sensitivity)
	GroundTruthSpecificity.Set(specificity)
}

// Timer measures elapsed wall-clock time for a single operation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordResolution stops the timer and records resolution_duration_seconds.
func (t *Timer) RecordResolution() {
	ResolutionDuration.Observe(t.Elapsed().Seconds())
}
