package resolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/blocking"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

type fakeStore struct {
	entities    map[uuid.UUID]model.Entity
	identifiers map[uuid.UUID][]model.Identifier
	mentions    map[uuid.UUID]model.Resolution
	decisions   []model.ResolutionDecision
	audits      []model.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:    map[uuid.UUID]model.Entity{},
		identifiers: map[uuid.UUID][]model.Identifier{},
		mentions:    map[uuid.UUID]model.Resolution{},
	}
}

func (f *fakeStore) GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error) {
	e, ok := f.entities[id]
	if !ok {
		return model.Entity{}, errNotFound
	}
	return e, nil
}

func (f *fakeStore) CreateEntity(ctx context.Context, entityType model.EntityType, canonicalName string, confidence float64, prov model.Provenance) (uuid.UUID, error) {
	id := uuid.New()
	f.entities[id] = model.Entity{ID: id, EntityType: entityType, CanonicalName: canonicalName, Status: model.EntityStatusActive}
	return id, nil
}

func (f *fakeStore) AddIdentifier(ctx context.Context, entity uuid.UUID, idType model.IdentifierType, value string, confidence float64, prov model.Provenance) error {
	f.identifiers[entity] = append(f.identifiers[entity], model.Identifier{Entity: entity, Type: idType, Value: value, Confidence: confidence, Provenance: prov})
	return nil
}

func (f *fakeStore) ListIdentifiers(ctx context.Context, entity uuid.UUID) ([]model.Identifier, error) {
	return f.identifiers[entity], nil
}

func (f *fakeStore) AddFact(ctx context.Context, fact model.Fact) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeStore) SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeStore) CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error) {
	return nil, nil
}

func (f *fakeStore) Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeStore) ResolveMention(ctx context.Context, mentionID uuid.UUID, decision model.Resolution) error {
	f.mentions[mentionID] = decision
	return nil
}

func (f *fakeStore) CreateResolutionDecision(ctx context.Context, d model.ResolutionDecision) (uuid.UUID, error) {
	d.ID = uuid.New()
	f.decisions = append(f.decisions, d)
	return d.ID, nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error) {
	f.audits = append(f.audits, entry)
	return entry, nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var errNotFound = notFoundError{}

func newTestResolver(st *fakeStore) *Resolver {
	cfg := config.Default()
	blocker := blocking.New(fakeBlockingLookup{}, blocking.NewMemIndex())
	return New(st, blocker, cfg, zap.NewNop())
}

type fakeBlockingLookup struct{}

func (fakeBlockingLookup) LookupByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (model.Entity, bool, error) {
	return model.Entity{}, false, nil
}

func TestResolveNoCandidatesCreatesEntity(t *testing.T) {
	st := newFakeStore()
	r := newTestResolver(st)

	mention := model.Mention{
		ID:          uuid.New(),
		MentionType: model.MentionTypePerson,
		SurfaceForm: "Anders Andersson",
		Provenance:  model.Provenance{SourceType: model.SourceTypeAuthoritativeRegistry, SourceID: "test"},
	}

	decision, err := r.Resolve(context.Background(), mention)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.Decision != model.ResolutionStatusAutoRejected {
		t.Errorf("Decision = %v, want AUTO_REJECTED (new entity path)", decision.Decision)
	}
	if len(st.entities) != 1 {
		t.Errorf("entities created = %d, want 1", len(st.entities))
	}
	if _, ok := st.mentions[mention.ID]; !ok {
		t.Error("expected mention to be resolved")
	}
}

func TestResolveAutoMatchViaExactIdentifier(t *testing.T) {
	st := newFakeStore()
	existing := uuid.New()
	st.entities[existing] = model.Entity{ID: existing, EntityType: model.EntityTypePerson, CanonicalName: "ANDERS ANDERSSON", Status: model.EntityStatusActive}
	st.identifiers[existing] = []model.Identifier{{Entity: existing, Type: model.IdentifierTypePersonnummer, Value: "198501011236"}}

	cfg := config.Default()
	blocker := blocking.New(exactLookup{entity: existing}, blocking.NewMemIndex())
	r := New(st, blocker, cfg, zap.NewNop())

	mention := model.Mention{
		ID:                   uuid.New(),
		MentionType:          model.MentionTypePerson,
		SurfaceForm:          "Anders Andersson",
		ExtractedIdentifiers: map[model.IdentifierType]string{model.IdentifierTypePersonnummer: "198501011236"},
		Provenance:           model.Provenance{SourceType: model.SourceTypeAuthoritativeRegistry, SourceID: "test"},
	}

	decision, err := r.Resolve(context.Background(), mention)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.Decision != model.ResolutionStatusAutoMatched {
		t.Errorf("Decision = %v, want AUTO_MATCHED", decision.Decision)
	}
	if res := st.mentions[mention.ID]; res.ResolvedEntity == nil || *res.ResolvedEntity != existing {
		t.Errorf("resolved entity = %v, want %v", res.ResolvedEntity, existing)
	}
}

type exactLookup struct{ entity uuid.UUID }

func (e exactLookup) LookupByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (model.Entity, bool, error) {
	return model.Entity{ID: e.entity}, true, nil
}

func TestResolveFactConflictHigherAuthorityWins(t *testing.T) {
	authority := config.DefaultSourceAuthorityTable()
	existing := model.Fact{Predicate: model.PredicateDirectorOf, Provenance: model.Provenance{SourceType: model.SourceTypeAuthoritativeRegistry}}
	incoming := model.Fact{Predicate: model.PredicateDirectorOf, Provenance: model.Provenance{SourceType: model.SourceTypeScrape}}

	if ResolveFactConflict(authority, existing, incoming) {
		t.Error("a scrape should never supersede an authoritative-registry fact")
	}
	if !ResolveFactConflict(authority, incoming, existing) {
		t.Error("an authoritative-registry fact should supersede a scrape")
	}
}
