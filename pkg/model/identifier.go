package model

import (
	"time"

	"github.com/google/uuid"
)

type IdentifierType string

const (
	IdentifierTypePersonnummer       IdentifierType = "PERSONNUMMER"
	IdentifierTypeSamordningsnummer  IdentifierType = "SAMORDNINGSNUMMER"
	IdentifierTypeOrganisationsnummer IdentifierType = "ORGANISATIONSNUMMER"
	IdentifierTypePostalCode         IdentifierType = "POSTAL_CODE"
	IdentifierTypePropertyID         IdentifierType = "PROPERTY_ID"
)

// Identifier binds a typed external identifier to an entity. The pair
// (Type, Value) must resolve in O(log n) or better; the triple
// (Entity, Type, Value) is unique.
type Identifier struct {
	Entity     uuid.UUID
	Type       IdentifierType
	Value      string
	Confidence float64
	Provenance Provenance
	ValidFrom  time.Time
	ValidTo    *time.Time
}

// IsCurrent reports whether the identifier holds as of asOf.
func (i Identifier) IsCurrent(asOf time.Time) bool {
	if asOf.Before(i.ValidFrom) {
		return false
	}
	return i.ValidTo == nil || !i.ValidTo.Before(asOf)
}
