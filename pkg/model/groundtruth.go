package model

import (
	"time"

	"github.com/google/uuid"
)

// GroundTruthOutcome is the human-labeled expected resolution outcome
// for a mention, used to measure the resolver's real-world accuracy.
type GroundTruthOutcome string

const (
	GroundTruthMatch   GroundTruthOutcome = "MATCH"
	GroundTruthNoMatch GroundTruthOutcome = "NO_MATCH"
)

// GroundTruthPair links a mention to its known-correct resolution:
// ExpectedEntity set and Outcome MATCH means the mention should have
// resolved into that exact entity's cluster; Outcome NO_MATCH (with
// ExpectedEntity nil) means the mention should not have matched any
// existing entity.
type GroundTruthPair struct {
	ID             uuid.UUID
	MentionID      uuid.UUID
	ExpectedEntity *uuid.UUID
	Outcome        GroundTruthOutcome
	CreatedAt      time.Time
}
