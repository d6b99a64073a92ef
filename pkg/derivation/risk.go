package derivation

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

var genericSNIPrefixes = map[string]bool{"64": true, "66": true, "68": true, "70": true, "82": true}

// derivePerson recomputes the person risk score (spec §4.7) and
// supersedes the RISK_SCORE fact if it changed.
func (e *Engine) derivePerson(ctx context.Context, person uuid.UUID) (bool, error) {
	directedCompanies, err := e.store.Neighbors(ctx, person, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionOutgoing, 0)
	if err != nil {
		return false, err
	}

	var shellDirectorships, vulnerableAreaCompanies, dissolvedHistory int
	for _, company := range directedCompanies {
		if facts, err := e.store.CurrentFacts(ctx, company, predicatePtr(model.PredicateShellIndicator)); err == nil && len(facts) > 0 && facts[0].Value != nil && len(facts[0].Value.List) > 0 {
			shellDirectorships++
		}
		if isVulnerableAreaCompany(ctx, e.store, company) {
			vulnerableAreaCompanies++
		}
		if isDissolved(ctx, e.store, company) {
			dissolvedHistory++
		}
	}

	velocity, _ := e.directorVelocity(ctx, person)

	var factors []string
	score := 0.0
	weights := e.cfg.PersonRiskWeights
	if len(directedCompanies) > 5 {
		score += weights["many_directorships"]
		factors = append(factors, "many_directorships")
	}
	if shellDirectorships > 0 {
		score += weights["shell_company_director"]
		factors = append(factors, "shell_company_director")
	}
	if velocity > 2.0 {
		score += weights["high_velocity_network"]
		factors = append(factors, "high_velocity_network")
	}
	if vulnerableAreaCompanies > 0 {
		score += weights["vulnerable_area_companies"]
		factors = append(factors, "vulnerable_area_companies")
	}
	if dissolvedHistory > 3 {
		score += weights["dissolved_company_history"]
		factors = append(factors, "dissolved_company_history")
	}
	if len(directedCompanies) > 0 && isYoung(ctx, e.store, person) {
		score += weights["young_director"]
		factors = append(factors, "young_director")
	}

	derivedFrom := append([]uuid.UUID{}, directedCompanies...)
	return e.writeDerived(ctx, person, model.PredicateRiskScore, model.NumberValue(score), derivedFrom)
}

// deriveCompany recomputes the company shell-risk score and the
// shell-indicator tag list together, since both read the same
// attribute facts.
func (e *Engine) deriveCompany(ctx context.Context, company uuid.UUID) (bool, error) {
	weights := e.cfg.CompanyShellWeights
	var tags []string
	score := 0.0

	if fact, ok := currentFact(ctx, e.store, company, model.PredicateFSkattVAT); ok && fact.Value != nil && !fact.Value.Bool {
		score += weights["f_skatt_no_vat"]
		tags = append(tags, "f_skatt_no_vat")
	}
	if fact, ok := currentFact(ctx, e.store, company, model.PredicateSNICode); ok && fact.Value != nil && genericSNIPrefixes[fact.Value.String] {
		score += weights["generic_sni"]
		tags = append(tags, "generic_sni")
	}
	if fact, ok := currentFact(ctx, e.store, company, model.PredicateEmployeeCount); ok && fact.Value != nil && fact.Value.Number == 0 {
		score += weights["no_employees"]
		tags = append(tags, "no_employees")
	}
	if recentlyFormed(ctx, e.store, company, e.now()) {
		score += weights["recently_formed"]
		tags = append(tags, "recently_formed")
	}
	directors, err := e.store.Neighbors(ctx, company, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionIncoming, 0)
	if err != nil {
		return false, err
	}
	if len(directors) == 1 {
		score += weights["single_director"]
		tags = append(tags, "single_director")
	}
	if fact, ok := currentFact(ctx, e.store, company, model.PredicateRevenue); ok && fact.Value != nil && fact.Value.Number == 0 {
		score += weights["no_revenue"]
		tags = append(tags, "no_revenue")
	}

	scoreChanged, err := e.writeDerived(ctx, company, model.PredicateRiskScore, model.NumberValue(score), directors)
	if err != nil {
		return false, err
	}
	tagsChanged, err := e.writeDerived(ctx, company, model.PredicateShellIndicator, model.ListValue(tags), directors)
	if err != nil {
		return false, err
	}
	return scoreChanged || tagsChanged, nil
}

func predicatePtr(p model.Predicate) *model.Predicate { return &p }

func currentFact(ctx context.Context, st Store, subject uuid.UUID, predicate model.Predicate) (model.Fact, bool) {
	facts, err := st.CurrentFacts(ctx, subject, predicatePtr(predicate))
	if err != nil || len(facts) == 0 {
		return model.Fact{}, false
	}
	return facts[0], true
}

func isVulnerableAreaCompany(ctx context.Context, st Store, company uuid.UUID) bool {
	addresses, err := st.Neighbors(ctx, company, []model.Predicate{model.PredicateRegisteredAt}, storepkg.DirectionOutgoing, 1)
	if err != nil || len(addresses) == 0 {
		return false
	}
	fact, ok := currentFact(ctx, st, addresses[0], model.PredicateVulnerability)
	if !ok || fact.Value == nil {
		return false
	}
	return fact.Value.String == "medium" || fact.Value.String == "high"
}

func isDissolved(ctx context.Context, st Store, company uuid.UUID) bool {
	fact, ok := currentFact(ctx, st, company, model.PredicateCompanyStatus)
	if !ok || fact.Value == nil {
		return false
	}
	return fact.Value.String == "DISSOLVED" || fact.Value.String == "BANKRUPT"
}
