package model

import (
	"time"

	"github.com/google/uuid"
)

type MentionType string

const (
	MentionTypePerson  MentionType = "PERSON"
	MentionTypeCompany MentionType = "COMPANY"
	MentionTypeAddress MentionType = "ADDRESS"
	MentionTypeEvent   MentionType = "EVENT"
)

type ResolutionStatus string

const (
	ResolutionStatusPending       ResolutionStatus = "PENDING"
	ResolutionStatusAutoMatched   ResolutionStatus = "AUTO_MATCHED"
	ResolutionStatusHumanMatched  ResolutionStatus = "HUMAN_MATCHED"
	ResolutionStatusAutoRejected  ResolutionStatus = "AUTO_REJECTED"
	ResolutionStatusHumanRejected ResolutionStatus = "HUMAN_REJECTED"
)

// terminalResolutionStatuses are the statuses a mention may only reach
// once; PENDING is the sole non-terminal status.
var terminalResolutionStatuses = map[ResolutionStatus]bool{
	ResolutionStatusAutoMatched:   true,
	ResolutionStatusHumanMatched:  true,
	ResolutionStatusAutoRejected:  true,
	ResolutionStatusHumanRejected: true,
}

// Resolution records the outcome of resolving a Mention.
type Resolution struct {
	Status         ResolutionStatus
	ResolvedEntity *uuid.UUID
	Confidence     float64
	Method         string
	Timestamp      *time.Time
	Reviewer       string
}

// IsTerminal reports whether r represents a final resolution outcome.
func (r Resolution) IsTerminal() bool {
	return terminalResolutionStatuses[r.Status]
}

// Mention is an observed surface form prior to resolution.
type Mention struct {
	ID                   uuid.UUID
	MentionType          MentionType
	SurfaceForm          string
	NormalizedForm       string
	ExtractedIdentifiers map[IdentifierType]string
	ExtractedAttributes  map[string]string
	Provenance           Provenance
	DocumentLocation     string
	Resolution           Resolution
	CreatedAt            time.Time
}
