package model

import (
	"time"

	"github.com/google/uuid"
)

type FactType string

const (
	FactTypeAttribute    FactType = "ATTRIBUTE"
	FactTypeRelationship FactType = "RELATIONSHIP"
)

type Predicate string

const (
	// Relationship predicates (MVP set).
	PredicateDirectorOf    Predicate = "DIRECTOR_OF"
	PredicateShareholderOf Predicate = "SHAREHOLDER_OF"
	PredicateRegisteredAt  Predicate = "REGISTERED_AT"
	PredicateSameAs        Predicate = "SAME_AS"

	// Derived attribute predicates.
	PredicateRiskScore        Predicate = "RISK_SCORE"
	PredicateShellIndicator   Predicate = "SHELL_INDICATOR"
	PredicateDirectorVelocity Predicate = "DIRECTOR_VELOCITY"
	PredicateNetworkCluster   Predicate = "NETWORK_CLUSTER"
	PredicateRegistrationHub  Predicate = "REGISTRATION_HUB"
	PredicateVulnerability    Predicate = "VULNERABILITY_LEVEL"

	// Raw attribute predicates, populated by ingestion adapters ahead
	// of derivation and pattern matching.
	PredicateSNICode        Predicate = "SNI_CODE"
	PredicateEmployeeCount  Predicate = "EMPLOYEE_COUNT"
	PredicateRevenue        Predicate = "REVENUE"
	PredicateFSkattVAT      Predicate = "F_SKATT_VAT"
	PredicateFormationDate  Predicate = "FORMATION_DATE"
	PredicateCompanyStatus  Predicate = "COMPANY_STATUS"
	PredicateBirthDate      Predicate = "BIRTH_DATE"
)

// ValueKind discriminates the typed payload an ATTRIBUTE fact carries.
type ValueKind string

const (
	ValueKindString ValueKind = "STRING"
	ValueKindNumber ValueKind = "NUMBER"
	ValueKindBool   ValueKind = "BOOL"
	ValueKindList   ValueKind = "LIST"
)

// FactValue is the typed value of an ATTRIBUTE fact. Exactly one of
// String/Number/Bool/List is meaningful, selected by Kind. List
// values (e.g. shell_indicators tags) are carried as a string slice;
// the store serializes them into the same value_string column a plain
// STRING uses.
type FactValue struct {
	Kind   ValueKind
	String string
	Number float64
	Bool   bool
	List   []string
}

func StringValue(s string) FactValue    { return FactValue{Kind: ValueKindString, String: s} }
func NumberValue(n float64) FactValue   { return FactValue{Kind: ValueKindNumber, Number: n} }
func BoolValue(b bool) FactValue        { return FactValue{Kind: ValueKindBool, Bool: b} }
func ListValue(items []string) FactValue { return FactValue{Kind: ValueKindList, List: items} }

// Fact is either an ATTRIBUTE (Subject, Predicate, Value) or a
// RELATIONSHIP (Subject, Predicate, Object). Facts are never deleted;
// superseding one sets SupersededBy/SupersededAt on the old fact and
// leaves it in place for audit and point-in-time queries.
type Fact struct {
	ID         uuid.UUID
	FactType   FactType
	Subject    uuid.UUID
	Predicate  Predicate
	Value      *FactValue // set iff FactType == FactTypeAttribute
	Object     *uuid.UUID // set iff FactType == FactTypeRelationship

	ValidFrom time.Time // day granularity
	ValidTo   *time.Time
	Confidence float64
	Provenance Provenance
	CreatedAt  time.Time

	SupersededBy *uuid.UUID
	SupersededAt *time.Time

	IsDerived   bool
	RuleName    string
	DerivedFrom []uuid.UUID
}

// IsCurrent implements the spec invariant: a fact is current iff it
// has not been superseded and its ValidTo, if set, is not before the
// day of asOf. ValidFrom is not checked.
func (f Fact) IsCurrent(asOf time.Time) bool {
	if f.SupersededBy != nil {
		return false
	}
	if f.ValidTo != nil && f.ValidTo.Before(truncateToDay(asOf)) {
		return false
	}
	return true
}

// truncateToDay drops the time-of-day component, since valid_from/
// valid_to are day-granularity per spec.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
