// Package patterns implements the pattern engine of spec §4.8: a
// parameterized shell-network query, the supplemented phoenix-company
// detector, and streaming alert generation on new COMPANY entities.
// Per the "Graph backend as a plug-in" redesign note, queries run
// against the Postgres-backed entity-fact store via plain SQL plus
// Go-side grouping rather than a dedicated graph database.
package patterns

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

// Store is the subset of *store.Store the pattern engine depends on.
type Store interface {
	ListActiveEntityIDs(ctx context.Context, entityType model.EntityType) ([]uuid.UUID, error)
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error)
	Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error)
	CreateAlert(ctx context.Context, a model.Alert) (uuid.UUID, error)
	AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error)
}

type Engine struct {
	store Store
	cfg   config.ShellNetworkDefaults
	now   func() time.Time
}

func New(store Store, cfg config.ShellNetworkDefaults) *Engine {
	return &Engine{store: store, cfg: cfg, now: time.Now}
}

// ShellNetworkParams parameterizes the shell-network query (spec
// §4.8). Zero-valued fields fall back to the engine's configured
// defaults.
type ShellNetworkParams struct {
	MinCompanies     int
	MaxEmployees     int
	MaxRevenue       float64
	IncludeDissolved bool
}

// ShellNetworkMatch is one director and the qualifying companies found
// under them.
type ShellNetworkMatch struct {
	Director   uuid.UUID
	Companies  []uuid.UUID
	RiskScore  float64
}

func (e *Engine) resolveParams(p ShellNetworkParams) ShellNetworkParams {
	if p.MinCompanies <= 0 {
		p.MinCompanies = e.cfg.MinCompanies
	}
	if p.MaxEmployees <= 0 {
		p.MaxEmployees = e.cfg.MaxEmployees
	}
	if p.MaxRevenue <= 0 {
		p.MaxRevenue = e.cfg.MaxRevenue
	}
	return p
}

// ShellNetwork implements spec §4.8's shell-network query: group
// companies by director over current DIRECTOR_OF facts, filter by
// company attributes, retain directors with at least MinCompanies
// qualifying companies, and order by (match_size DESC, director
// risk_score DESC).
func (e *Engine) ShellNetwork(ctx context.Context, params ShellNetworkParams) ([]ShellNetworkMatch, error) {
	params = e.resolveParams(params)

	directors, err := e.store.ListActiveEntityIDs(ctx, model.EntityTypePerson)
	if err != nil {
		return nil, err
	}

	var matches []ShellNetworkMatch
	for _, director := range directors {
		select {
		case <-ctx.Done():
			return matches, ctx.Err()
		default:
		}
		companies, err := e.store.Neighbors(ctx, director, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionOutgoing, 0)
		if err != nil {
			continue
		}
		var qualifying []uuid.UUID
		for _, company := range companies {
			if e.qualifiesShell(ctx, company, params) {
				qualifying = append(qualifying, company)
			}
		}
		if len(qualifying) < params.MinCompanies {
			continue
		}
		matches = append(matches, ShellNetworkMatch{
			Director:  director,
			Companies: qualifying,
			RiskScore: numberFact(ctx, e.store, director, model.PredicateRiskScore),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].Companies) != len(matches[j].Companies) {
			return len(matches[i].Companies) > len(matches[j].Companies)
		}
		return matches[i].RiskScore > matches[j].RiskScore
	})
	return matches, nil
}

func (e *Engine) qualifiesShell(ctx context.Context, company uuid.UUID, params ShellNetworkParams) bool {
	if !params.IncludeDissolved {
		switch stringFact(ctx, e.store, company, model.PredicateCompanyStatus) {
		case "DISSOLVED", "BANKRUPT":
			return false
		}
	}
	if emp, ok := numberFactOK(ctx, e.store, company, model.PredicateEmployeeCount); ok && emp > float64(params.MaxEmployees) {
		return false
	}
	if rev, ok := numberFactOK(ctx, e.store, company, model.PredicateRevenue); ok && rev > params.MaxRevenue {
		return false
	}
	return true
}

func numberFact(ctx context.Context, st Store, subject uuid.UUID, predicate model.Predicate) float64 {
	v, _ := numberFactOK(ctx, st, subject, predicate)
	return v
}

func numberFactOK(ctx context.Context, st Store, subject uuid.UUID, predicate model.Predicate) (float64, bool) {
	facts, err := st.CurrentFacts(ctx, subject, &predicate)
	if err != nil || len(facts) == 0 || facts[0].Value == nil {
		return 0, false
	}
	return facts[0].Value.Number, true
}

func stringFact(ctx context.Context, st Store, subject uuid.UUID, predicate model.Predicate) string {
	facts, err := st.CurrentFacts(ctx, subject, &predicate)
	if err != nil || len(facts) == 0 || facts[0].Value == nil {
		return ""
	}
	return facts[0].Value.String
}

// PhoenixDetect implements the supplemented phoenix-company pattern:
// given a dissolved company, find companies sharing at least one
// director or the same REGISTERED_AT address that were formed within
// windowDays of the dissolution date.
func (e *Engine) PhoenixDetect(ctx context.Context, dissolved uuid.UUID, dissolutionDate time.Time) ([]uuid.UUID, error) {
	window := e.cfg.PhoenixWindowDays
	if window <= 0 {
		window = 180
	}
	cutoff := dissolutionDate.AddDate(0, 0, window)

	directors, err := e.store.Neighbors(ctx, dissolved, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionIncoming, 0)
	if err != nil {
		return nil, err
	}
	addresses, err := e.store.Neighbors(ctx, dissolved, []model.Predicate{model.PredicateRegisteredAt}, storepkg.DirectionOutgoing, 1)
	if err != nil {
		return nil, err
	}

	candidates := map[uuid.UUID]bool{}
	for _, director := range directors {
		companies, err := e.store.Neighbors(ctx, director, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionOutgoing, 0)
		if err != nil {
			continue
		}
		for _, c := range companies {
			if c != dissolved {
				candidates[c] = true
			}
		}
	}
	for _, address := range addresses {
		companies, err := e.store.Neighbors(ctx, address, []model.Predicate{model.PredicateRegisteredAt}, storepkg.DirectionIncoming, 0)
		if err != nil {
			continue
		}
		for _, c := range companies {
			if c != dissolved {
				candidates[c] = true
			}
		}
	}

	var matches []uuid.UUID
	for candidate := range candidates {
		formedStr := stringFact(ctx, e.store, candidate, model.PredicateFormationDate)
		if formedStr == "" {
			continue
		}
		formed, err := time.Parse("2006-01-02", formedStr)
		if err != nil {
			continue
		}
		if formed.After(dissolutionDate) && !formed.After(cutoff) {
			matches = append(matches, candidate)
		}
	}
	return matches, nil
}
