package patterns

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

const alertRuleName = "streaming_alert@1"

var healthcareSNIPrefixes = []string{"86", "87", "88"}

// EvaluateNewCompany implements spec §4.8's streaming alert
// generation: on creation of a COMPANY entity (or its first DIRECTOR_OF
// edge), compute a risk-signal vector and emit an Alert when at least
// two signals trigger, or when the healthcare+vulnerable combination
// alone triggers.
func (e *Engine) EvaluateNewCompany(ctx context.Context, company uuid.UUID) (*model.Alert, error) {
	var signals []string
	combinedScore := 0.0

	directors, err := e.store.Neighbors(ctx, company, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionIncoming, 0)
	if err != nil {
		return nil, err
	}
	maxDirectorRisk := 0.0
	for _, director := range directors {
		if risk := numberFact(ctx, e.store, director, model.PredicateRiskScore); risk > maxDirectorRisk {
			maxDirectorRisk = risk
		}
	}
	if maxDirectorRisk >= 0.60 {
		signals = append(signals, "max_director_risk_score")
		combinedScore += maxDirectorRisk
	}

	addresses, err := e.store.Neighbors(ctx, company, []model.Predicate{model.PredicateRegisteredAt}, storepkg.DirectionOutgoing, 1)
	if err != nil {
		return nil, err
	}
	vulnerable := false
	isHub := false
	if len(addresses) > 0 {
		level := stringFact(ctx, e.store, addresses[0], model.PredicateVulnerability)
		vulnerable = level == "medium" || level == "high"
		isHub = boolFact(ctx, e.store, addresses[0], model.PredicateRegistrationHub)
	}
	if vulnerable {
		signals = append(signals, "address_vulnerable")
		combinedScore += 0.25
	}
	if isHub {
		signals = append(signals, "address_is_registration_hub")
		combinedScore += 0.15
	}

	healthcareVulnerable := vulnerable && isHealthcareSNI(stringFact(ctx, e.store, company, model.PredicateSNICode))
	if healthcareVulnerable {
		signals = append(signals, "healthcare_vulnerable_area")
		combinedScore += 0.30
	}

	if len(signals) < 2 && !healthcareVulnerable {
		return nil, nil
	}

	alert := model.Alert{Entity: company, Signals: signals, CombinedScore: combinedScore, RuleName: alertRuleName}
	id, err := e.store.CreateAlert(ctx, alert)
	if err != nil {
		return nil, err
	}
	alert.ID = id

	_, _ = e.store.AppendAudit(ctx, model.AuditEntry{
		EventType: "ALERT_CREATE",
		Timestamp: e.now(),
		Actor:     model.Actor{Type: model.ActorTypeSystem, ID: "patterns.engine"},
		Target:    model.Target{Type: "alert", ID: id},
		Payload:   map[string]any{"entity": company.String(), "signals": signals, "combined_score": combinedScore},
	})
	metrics.RecordAlert(alertRuleName)

	return &alert, nil
}

func isHealthcareSNI(code string) bool {
	for _, prefix := range healthcareSNIPrefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

func boolFact(ctx context.Context, st Store, subject uuid.UUID, predicate model.Predicate) bool {
	facts, err := st.CurrentFacts(ctx, subject, &predicate)
	if err != nil || len(facts) == 0 || facts[0].Value == nil {
		return false
	}
	return facts[0].Value.Bool
}
