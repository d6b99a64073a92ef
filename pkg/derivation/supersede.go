package derivation

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// writeDerived implements the spec's idempotent-supersession rule: if
// subject already carries a current fact for predicate and its value
// equals newValue, nothing is written; otherwise the current fact (if
// any) is superseded by a new derived fact listing derivedFrom as
// lineage.
func (e *Engine) writeDerived(ctx context.Context, subject uuid.UUID, predicate model.Predicate, newValue model.FactValue, derivedFrom []uuid.UUID) (changed bool, err error) {
	current, err := e.store.CurrentFacts(ctx, subject, &predicate)
	if err != nil {
		return false, err
	}

	var existing *model.Fact
	if len(current) > 0 {
		existing = &current[0]
		if valuesEqual(*existing.Value, newValue) {
			return false, nil
		}
	}

	newFact := model.Fact{
		FactType:    model.FactTypeAttribute,
		Subject:     subject,
		Predicate:   predicate,
		Value:       &newValue,
		ValidFrom:   e.now(),
		Confidence:  1.0,
		Provenance:  model.Provenance{SourceType: model.SourceTypeDerivedComputation, SourceID: RuleVersion, Timestamp: e.now()},
		IsDerived:   true,
		RuleName:    RuleVersion,
		DerivedFrom: derivedFrom,
	}

	if existing == nil {
		if len(newFact.DerivedFrom) == 0 {
			// AddFact requires derived_from to be non-empty; a
			// first-ever derivation with no qualifying source facts
			// still needs a concrete lineage anchor, so fall back to
			// the subject's own id.
			newFact.DerivedFrom = []uuid.UUID{subject}
		}
		_, err = e.store.AddFact(ctx, newFact)
		return err == nil, err
	}

	if len(newFact.DerivedFrom) == 0 {
		newFact.DerivedFrom = []uuid.UUID{subject}
	}
	_, err = e.store.SupersedeFact(ctx, existing.ID, newFact)
	return err == nil, err
}

func valuesEqual(a, b model.FactValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case model.ValueKindString:
		return a.String == b.String
	case model.ValueKindNumber:
		return a.Number == b.Number
	case model.ValueKindBool:
		return a.Bool == b.Bool
	case model.ValueKindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if a.List[i] != b.List[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}
