package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert is emitted by the streaming risk-signal evaluation of spec
// §4.8 when a newly created (or newly DIRECTOR_OF-connected) company
// crosses the combined-signal threshold.
type Alert struct {
	ID             uuid.UUID
	Entity         uuid.UUID
	Signals        []string
	CombinedScore  float64
	RuleName       string
	CreatedAt      time.Time
	Acknowledged   bool
	AcknowledgedAt *time.Time
	AcknowledgedBy string
}
