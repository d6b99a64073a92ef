package store

import (
	"testing"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

func TestValidatePredicateVocabulary(t *testing.T) {
	cases := []struct {
		name      string
		factType  model.FactType
		predicate model.Predicate
		wantErr   bool
	}{
		{"director_of is a valid relationship predicate", model.FactTypeRelationship, model.PredicateDirectorOf, false},
		{"same_as is a valid relationship predicate", model.FactTypeRelationship, model.PredicateSameAs, false},
		{"risk_score is a valid attribute predicate", model.FactTypeAttribute, model.PredicateRiskScore, false},
		{"risk_score is not a valid relationship predicate", model.FactTypeRelationship, model.PredicateRiskScore, true},
		{"director_of is not a valid attribute predicate", model.FactTypeAttribute, model.PredicateDirectorOf, true},
		{"unknown fact type is rejected", model.FactType("BOGUS"), model.PredicateDirectorOf, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePredicateVocabulary(tc.factType, tc.predicate)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && coreerrors.GetType(err) != coreerrors.ErrorTypeInvariant {
				t.Errorf("error type = %s, want invariant", coreerrors.GetType(err))
			}
		})
	}
}
