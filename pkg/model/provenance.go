package model

import (
	"time"

	"github.com/google/uuid"
)

type ProvenanceSourceType string

const (
	SourceTypeAuthoritativeRegistry ProvenanceSourceType = "AUTHORITATIVE_REGISTRY"
	SourceTypeScrape                ProvenanceSourceType = "SCRAPE"
	SourceTypeManualEntry           ProvenanceSourceType = "MANUAL_ENTRY"
	SourceTypeDerivedComputation    ProvenanceSourceType = "DERIVED_COMPUTATION"
)

// Provenance is attached to every fact, identifier, and mention;
// exactly one per record. Derived-computation provenance additionally
// carries the source fact ids and rule name that produced the record.
type Provenance struct {
	SourceType       ProvenanceSourceType
	SourceID         string
	URL              string
	DocumentHash     string
	ExtractionMethod string
	ExtractorVersion string
	Timestamp        time.Time

	// Populated only when SourceType == SourceTypeDerivedComputation.
	DerivedFromFactIDs []uuid.UUID
	RuleName           string
}

// IsDerived reports whether p describes a derivation rather than an
// ingested observation.
func (p Provenance) IsDerived() bool {
	return p.SourceType == SourceTypeDerivedComputation
}
