package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestRecordResolution(t *testing.T) {
	initial := testutil.ToFloat64(MentionsResolvedTotal.WithLabelValues("AUTO_MATCHED"))
	RecordResolution("AUTO_MATCHED")
	final := testutil.ToFloat64(MentionsResolvedTotal.WithLabelValues("AUTO_MATCHED"))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordDerivationRun(t *testing.T) {
	initialSuperseded := testutil.ToFloat64(DerivationFactsTotal.WithLabelValues("superseded"))
	initialPersons := testutil.ToFloat64(DerivationEntitiesProcessedTotal.WithLabelValues("PERSON"))

	RecordDerivationRun(2*time.Second, 5, 3, 1, 4, 2)

	assert.Equal(t, initialSuperseded+4.0, testutil.ToFloat64(DerivationFactsTotal.WithLabelValues("superseded")))
	assert.Equal(t, initialPersons+5.0, testutil.ToFloat64(DerivationEntitiesProcessedTotal.WithLabelValues("PERSON")))

	metric := &dto.Metric{}
	DerivationRunDuration.Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0)
}

func TestRecordAlert(t *testing.T) {
	initial := testutil.ToFloat64(AlertsEmittedTotal.WithLabelValues("streaming_alert@1"))
	RecordAlert("streaming_alert@1")
	final := testutil.ToFloat64(AlertsEmittedTotal.WithLabelValues("streaming_alert@1"))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordAudit(t *testing.T) {
	initial := testutil.ToFloat64(AuditAppendsTotal.WithLabelValues("ENTITY_MERGE"))
	RecordAudit("ENTITY_MERGE")
	final := testutil.ToFloat64(AuditAppendsTotal.WithLabelValues("ENTITY_MERGE"))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordAuditChainBroken(t *testing.T) {
	initial := testutil.ToFloat64(AuditChainBrokenTotal)
	RecordAuditChainBroken()
	final := testutil.ToFloat64(AuditChainBrokenTotal)
	assert.Equal(t, initial+1.0, final)
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	initial := testutil.ToFloat64(CircuitBreakerTripsTotal.WithLabelValues("postgres"))
	RecordCircuitBreakerTrip("postgres")
	final := testutil.ToFloat64(CircuitBreakerTripsTotal.WithLabelValues("postgres"))
	assert.Equal(t, initial+1.0, final)
}

func TestSetGroundTruthScores(t *testing.T) {
	SetGroundTruthScores(0.93, 0.997)
	assert.Equal(t, 0.93, testutil.ToFloat64(GroundTruthSensitivity))
	assert.Equal(t, 0.997, testutil.ToFloat64(GroundTruthSpecificity))
}

func TestTimerElapsed(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	elapsed := timer.Elapsed()
	assert.True(t, elapsed >= 10*time.Millisecond)
}

func TestTimerRecordResolution(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.RecordResolution()

	metric := &dto.Metric{}
	ResolutionDuration.Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0)
}
