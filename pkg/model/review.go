package model

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus tracks a ResolutionDecision through the human review
// queue. PENDING_REVIEW is the only non-terminal state.
type ReviewStatus string

const (
	ReviewStatusPendingReview ReviewStatus = "PENDING_REVIEW"
	ReviewStatusHumanMatched  ReviewStatus = "HUMAN_MATCHED"
	ReviewStatusHumanRejected ReviewStatus = "HUMAN_REJECTED"
)

// CandidateScore is one scored candidate entity within a
// ResolutionDecision, carrying the feature breakdown that produced its
// score for audit and reviewer inspection.
type CandidateScore struct {
	Entity   uuid.UUID
	Score    float64
	Features map[string]float64
}

// ResolutionDecision records the outcome of running the resolver
// pipeline (spec §4.5) against one mention: the candidates it scored,
// which decision it reached, and why. Decisions whose resolution
// landed in the review band also live in the review queue until a
// human submits a verdict.
type ResolutionDecision struct {
	ID         uuid.UUID
	Mention    uuid.UUID
	EntityType EntityType
	Candidates []CandidateScore
	Decision   ResolutionStatus
	Reason     string

	Priority int
	Status   ReviewStatus

	ChosenEntity *uuid.UUID
	Reviewer     string

	CreatedAt time.Time
	DecidedAt *time.Time
}

// IsPending reports whether d is still awaiting a human verdict.
func (d ResolutionDecision) IsPending() bool {
	return d.Status == ReviewStatusPendingReview
}
