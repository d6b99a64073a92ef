// Package model holds the core data-record types of the entity-fact
// store: entities, identifiers, facts, mentions, provenance, and audit
// entries. These are flat record types with no behavior beyond small
// invariant predicates — storage, resolution, and derivation logic
// live in their own packages and operate over these records.
package model

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityTypePerson  EntityType = "PERSON"
	EntityTypeCompany EntityType = "COMPANY"
	EntityTypeAddress EntityType = "ADDRESS"
	EntityTypeEvent   EntityType = "EVENT"
)

type EntityStatus string

const (
	EntityStatusActive     EntityStatus = "ACTIVE"
	EntityStatusMerged     EntityStatus = "MERGED"
	EntityStatusSplit      EntityStatus = "SPLIT"
	EntityStatusAnonymized EntityStatus = "ANONYMIZED"
)

// Entity is a resolved node in the identity graph.
type Entity struct {
	ID                   uuid.UUID
	EntityType           EntityType
	CanonicalName        string
	ResolutionConfidence float64
	Status               EntityStatus
	MergedInto           *uuid.UUID
	SplitFrom            *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
	AnonymizedAt         *time.Time
}

// IsActive reports whether e is the live member of its identity
// cluster, i.e. queries should resolve to it directly.
func (e Entity) IsActive() bool {
	return e.Status == EntityStatusActive
}

// IsPII reports whether e still carries personally identifying
// attributes. Anonymization clears them irreversibly.
func (e Entity) IsPII() bool {
	return e.Status != EntityStatusAnonymized
}
