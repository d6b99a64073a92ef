package derivation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

// directorVelocity computes a person's directorship-change velocity
// (spec §4.7): directorship changes per 12 months, smoothed as a
// moving average over the configured window. Since the fact store
// records a directorship as a single RELATIONSHIP fact that may later
// be superseded (ended) rather than a stream of discrete events, a
// "change" is approximated here by each current DIRECTOR_OF fact whose
// valid_from falls inside the window. Directorships that have ended
// (superseded, or valid_to in the past) are not counted; this is the
// best available proxy absent a dedicated DIRECTORSHIP_CHANGE event
// stream, which spec.md does not define.
func (e *Engine) directorVelocity(ctx context.Context, person uuid.UUID) (float64, error) {
	companies, err := e.store.Neighbors(ctx, person, []model.Predicate{model.PredicateDirectorOf}, storepkg.DirectionOutgoing, 0)
	if err != nil {
		return 0, err
	}
	window := e.cfg.VelocityWindowMonths
	if window <= 0 {
		window = 36
	}
	cutoff := e.now().AddDate(0, -window, 0)

	facts, err := e.store.CurrentFacts(ctx, person, predicatePtr(model.PredicateDirectorOf))
	if err != nil {
		return 0, err
	}
	changes := 0
	for _, f := range facts {
		if f.Object != nil && f.ValidFrom.After(cutoff) {
			changes++
		}
	}

	years := float64(window) / 12.0
	if years == 0 {
		return 0, nil
	}
	velocity := float64(changes) / years
	_, err = e.writeDerived(ctx, person, model.PredicateDirectorVelocity, model.NumberValue(velocity), companies)
	return velocity, err
}

func isYoung(ctx context.Context, st Store, person uuid.UUID) bool {
	fact, ok := currentFact(ctx, st, person, model.PredicateBirthDate)
	if !ok || fact.Value == nil || fact.Value.String == "" {
		return false
	}
	birth, err := time.Parse("2006-01-02", fact.Value.String)
	if err != nil {
		return false
	}
	age := time.Now().Year() - birth.Year()
	return age < 25
}

func recentlyFormed(ctx context.Context, st Store, company uuid.UUID, asOf time.Time) bool {
	fact, ok := currentFact(ctx, st, company, model.PredicateFormationDate)
	if !ok || fact.Value == nil || fact.Value.String == "" {
		return false
	}
	formed, err := time.Parse("2006-01-02", fact.Value.String)
	if err != nil {
		return false
	}
	return asOf.Sub(formed) < 2*365*24*time.Hour
}
