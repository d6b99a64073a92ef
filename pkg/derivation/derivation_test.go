package derivation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

type fakeDerivationStore struct {
	entities  map[uuid.UUID]model.Entity
	byType    map[model.EntityType][]uuid.UUID
	facts     map[uuid.UUID][]model.Fact // keyed by subject
	relations []model.Fact              // relationship facts, searched both directions
}

func newFakeDerivationStore() *fakeDerivationStore {
	return &fakeDerivationStore{
		entities: map[uuid.UUID]model.Entity{},
		byType:   map[model.EntityType][]uuid.UUID{},
		facts:    map[uuid.UUID][]model.Fact{},
	}
}

func (f *fakeDerivationStore) addEntity(id uuid.UUID, t model.EntityType) {
	f.entities[id] = model.Entity{ID: id, EntityType: t, Status: model.EntityStatusActive}
	f.byType[t] = append(f.byType[t], id)
}

func (f *fakeDerivationStore) addRelation(subject uuid.UUID, predicate model.Predicate, object uuid.UUID) {
	obj := object
	f.relations = append(f.relations, model.Fact{
		ID: uuid.New(), FactType: model.FactTypeRelationship, Subject: subject, Predicate: predicate, Object: &obj, ValidFrom: time.Now(),
	})
}

func (f *fakeDerivationStore) setAttr(subject uuid.UUID, predicate model.Predicate, value model.FactValue) {
	f.facts[subject] = append(f.facts[subject], model.Fact{
		ID: uuid.New(), FactType: model.FactTypeAttribute, Subject: subject, Predicate: predicate, Value: &value, ValidFrom: time.Now(),
	})
}

func (f *fakeDerivationStore) ListActiveEntityIDs(ctx context.Context, entityType model.EntityType) ([]uuid.UUID, error) {
	return f.byType[entityType], nil
}

func (f *fakeDerivationStore) GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error) {
	return f.entities[id], nil
}

func (f *fakeDerivationStore) CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error) {
	var out []model.Fact
	for _, fact := range f.facts[subject] {
		if predicate == nil || fact.Predicate == *predicate {
			out = append(out, fact)
		}
	}
	for _, fact := range f.relations {
		if fact.Subject != subject {
			continue
		}
		if predicate == nil || fact.Predicate == *predicate {
			out = append(out, fact)
		}
	}
	return out, nil
}

func (f *fakeDerivationStore) Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error) {
	want := map[model.Predicate]bool{}
	for _, p := range predicates {
		want[p] = true
	}
	var out []uuid.UUID
	for _, fact := range f.relations {
		if len(want) > 0 && !want[fact.Predicate] {
			continue
		}
		if (direction == storepkg.DirectionOutgoing || direction == storepkg.DirectionBoth) && fact.Subject == entity && fact.Object != nil {
			out = append(out, *fact.Object)
		}
		if (direction == storepkg.DirectionIncoming || direction == storepkg.DirectionBoth) && fact.Object != nil && *fact.Object == entity {
			out = append(out, fact.Subject)
		}
	}
	return out, nil
}

func (f *fakeDerivationStore) AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error) {
	return entry, nil
}

func (f *fakeDerivationStore) AddFact(ctx context.Context, fact model.Fact) (uuid.UUID, error) {
	fact.ID = uuid.New()
	f.facts[fact.Subject] = append(f.facts[fact.Subject], fact)
	return fact.ID, nil
}

func (f *fakeDerivationStore) SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error) {
	newFact.ID = uuid.New()
	list := f.facts[newFact.Subject]
	for i, existing := range list {
		if existing.ID == oldID {
			list[i].SupersededBy = &newFact.ID
		}
	}
	f.facts[newFact.Subject] = append(list, newFact)
	return newFact.ID, nil
}

func newTestEngine(st *fakeDerivationStore) *Engine {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return New(st, config.DefaultDerivationConfig(), log)
}

func TestDeriveCompanyShellIndicators(t *testing.T) {
	st := newFakeDerivationStore()
	company := uuid.New()
	st.addEntity(company, model.EntityTypeCompany)
	st.setAttr(company, model.PredicateFSkattVAT, model.BoolValue(false))
	st.setAttr(company, model.PredicateSNICode, model.StringValue("64"))
	st.setAttr(company, model.PredicateEmployeeCount, model.NumberValue(0))
	st.setAttr(company, model.PredicateRevenue, model.NumberValue(0))

	e := newTestEngine(st)
	changed, err := e.deriveCompany(context.Background(), company)
	if err != nil {
		t.Fatalf("deriveCompany() error = %v", err)
	}
	if !changed {
		t.Error("expected shell indicators to be written on first derivation")
	}

	tagFacts, _ := st.CurrentFacts(context.Background(), company, predicatePtr(model.PredicateShellIndicator))
	if len(tagFacts) == 0 || tagFacts[len(tagFacts)-1].Value == nil {
		t.Fatal("expected a SHELL_INDICATOR fact")
	}
	tags := tagFacts[len(tagFacts)-1].Value.List
	want := map[string]bool{"f_skatt_no_vat": true, "generic_sni": true, "no_employees": true, "no_revenue": true}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
		delete(want, tag)
	}
	if len(want) != 0 {
		t.Errorf("missing expected tags: %v", want)
	}
}

func TestDeriveCompanyIdempotentOnUnchangedInputs(t *testing.T) {
	st := newFakeDerivationStore()
	company := uuid.New()
	st.addEntity(company, model.EntityTypeCompany)
	st.setAttr(company, model.PredicateEmployeeCount, model.NumberValue(0))

	e := newTestEngine(st)
	ctx := context.Background()
	if _, err := e.deriveCompany(ctx, company); err != nil {
		t.Fatalf("first derive error = %v", err)
	}
	changed, err := e.deriveCompany(ctx, company)
	if err != nil {
		t.Fatalf("second derive error = %v", err)
	}
	if changed {
		t.Error("re-deriving unchanged inputs should be a no-op, not a new supersession")
	}
}

func TestDerivePersonManyDirectorshipsAndShellDirector(t *testing.T) {
	st := newFakeDerivationStore()
	person := uuid.New()
	st.addEntity(person, model.EntityTypePerson)

	shellCompany := uuid.New()
	st.addEntity(shellCompany, model.EntityTypeCompany)
	st.setAttr(shellCompany, model.PredicateShellIndicator, model.ListValue([]string{"no_revenue"}))
	st.addRelation(person, model.PredicateDirectorOf, shellCompany)

	for i := 0; i < 6; i++ {
		c := uuid.New()
		st.addEntity(c, model.EntityTypeCompany)
		st.addRelation(person, model.PredicateDirectorOf, c)
	}

	e := newTestEngine(st)
	changed, err := e.derivePerson(context.Background(), person)
	if err != nil {
		t.Fatalf("derivePerson() error = %v", err)
	}
	if !changed {
		t.Fatal("expected a risk score to be written")
	}
	riskFacts, _ := st.CurrentFacts(context.Background(), person, predicatePtr(model.PredicateRiskScore))
	score := riskFacts[len(riskFacts)-1].Value.Number
	if score < 0.20+0.30-0.001 {
		t.Errorf("score = %v, want at least many_directorships + shell_company_director weights", score)
	}
}

func TestDeriveAddressRegistrationHub(t *testing.T) {
	st := newFakeDerivationStore()
	address := uuid.New()
	st.addEntity(address, model.EntityTypeAddress)
	for i := 0; i < 60; i++ {
		c := uuid.New()
		st.addEntity(c, model.EntityTypeCompany)
		st.addRelation(c, model.PredicateRegisteredAt, address)
	}

	e := newTestEngine(st)
	changed, err := e.deriveAddress(context.Background(), address)
	if err != nil {
		t.Fatalf("deriveAddress() error = %v", err)
	}
	if !changed {
		t.Fatal("expected registration hub facts to be written")
	}
	hubFacts, _ := st.CurrentFacts(context.Background(), address, predicatePtr(model.PredicateRegistrationHub))
	if !hubFacts[len(hubFacts)-1].Value.Bool {
		t.Error("expected is_registration_hub = true above threshold")
	}
	levelFacts, _ := st.CurrentFacts(context.Background(), address, predicatePtr(model.PredicateVulnerability))
	if levelFacts[len(levelFacts)-1].Value.String != "high" {
		t.Errorf("vulnerability level = %v, want high", levelFacts[len(levelFacts)-1].Value.String)
	}
}

func TestDeriveClustersGroupsConnectedEntities(t *testing.T) {
	st := newFakeDerivationStore()
	person := uuid.New()
	company := uuid.New()
	address := uuid.New()
	st.addEntity(person, model.EntityTypePerson)
	st.addEntity(company, model.EntityTypeCompany)
	st.addEntity(address, model.EntityTypeAddress)
	st.addRelation(person, model.PredicateDirectorOf, company)
	st.addRelation(company, model.PredicateRegisteredAt, address)

	isolated := uuid.New()
	st.addEntity(isolated, model.EntityTypeCompany)

	e := newTestEngine(st)
	written, err := e.DeriveClusters(context.Background(), []uuid.UUID{person}, []uuid.UUID{company, isolated}, []uuid.UUID{address})
	if err != nil {
		t.Fatalf("DeriveClusters() error = %v", err)
	}
	if written != 4 {
		t.Errorf("clusters written = %d, want 4 (one per member)", written)
	}

	personCluster, _ := st.CurrentFacts(context.Background(), person, predicatePtr(model.PredicateNetworkCluster))
	companyCluster, _ := st.CurrentFacts(context.Background(), company, predicatePtr(model.PredicateNetworkCluster))
	if personCluster[len(personCluster)-1].Value.String != companyCluster[len(companyCluster)-1].Value.String {
		t.Error("person and director-of company should share a cluster id")
	}

	isolatedCluster, _ := st.CurrentFacts(context.Background(), isolated, predicatePtr(model.PredicateNetworkCluster))
	if isolatedCluster[len(isolatedCluster)-1].Value.String == companyCluster[len(companyCluster)-1].Value.String {
		t.Error("an unconnected company should not share the same cluster id")
	}
}

func TestRunProcessesAllEntityTypes(t *testing.T) {
	st := newFakeDerivationStore()
	person := uuid.New()
	company := uuid.New()
	address := uuid.New()
	st.addEntity(person, model.EntityTypePerson)
	st.addEntity(company, model.EntityTypeCompany)
	st.addEntity(address, model.EntityTypeAddress)

	e := newTestEngine(st)
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.PersonsProcessed != 1 || res.CompaniesProcessed != 1 || res.AddressesProcessed != 1 {
		t.Errorf("Run() result = %+v, want 1 of each entity type processed", res)
	}
}
