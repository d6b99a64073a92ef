package derivation

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

// deriveAddress implements the supplemented registration-hub attribute
// (SPEC_FULL.md): an address is flagged is_registration_hub when the
// count of distinct companies with a non-superseded REGISTERED_AT edge
// to it exceeds cfg.RegistrationHubThreshold; neither the companies'
// status nor the edges' valid_to is checked. vulnerability_level
// buckets the same count low/medium/high at a fifth and the full
// threshold, since spec.md leaves the bucketing boundaries themselves
// unspecified beyond "bucketed ... by the same count".
func (e *Engine) deriveAddress(ctx context.Context, address uuid.UUID) (bool, error) {
	companies, err := e.store.Neighbors(ctx, address, []model.Predicate{model.PredicateRegisteredAt}, storepkg.DirectionIncoming, 0)
	if err != nil {
		return false, err
	}

	threshold := e.cfg.RegistrationHubThreshold
	if threshold <= 0 {
		threshold = 50
	}
	count := len(companies)
	isHub := count > threshold

	level := "low"
	switch {
	case count >= threshold:
		level = "high"
	case count >= threshold/5:
		level = "medium"
	}

	hubChanged, err := e.writeDerived(ctx, address, model.PredicateRegistrationHub, model.BoolValue(isHub), companies)
	if err != nil {
		return false, err
	}
	levelChanged, err := e.writeDerived(ctx, address, model.PredicateVulnerability, model.StringValue(level), companies)
	if err != nil {
		return false, err
	}
	return hubChanged || levelChanged, nil
}
