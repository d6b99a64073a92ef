// Package lifecycle implements the entity lifecycle operations of
// spec §4.9: merge, split, and anonymize. Each is irreversible once
// committed and produces its own audit event.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/blocking"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/sv"
)

// Store is the subset of *store.Store the lifecycle package depends
// on.
type Store interface {
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	UpdateEntityStatus(ctx context.Context, id uuid.UUID, status model.EntityStatus, mergedInto, splitFrom *uuid.UUID) error
	CreateEntity(ctx context.Context, entityType model.EntityType, canonicalName string, confidence float64, prov model.Provenance) (uuid.UUID, error)
	AddFact(ctx context.Context, f model.Fact) (uuid.UUID, error)
	SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error)
	CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error)
	AnonymizeEntity(ctx context.Context, id uuid.UUID) error
	AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error)
}

type Manager struct {
	store   Store
	blocker *blocking.Blocker
	now     func() time.Time
}

func New(store Store, blocker *blocking.Blocker) *Manager {
	return &Manager{store: store, blocker: blocker, now: time.Now}
}

// Merge implements spec §4.9's merge operation: the older of a/b by
// created_at becomes canonical, the other is marked MERGED with
// merged_into set and unindexed from the blocking index so future
// resolution reads land on the survivor directly.
func (m *Manager) Merge(ctx context.Context, a, b uuid.UUID, reason string, confidence float64) (canonical uuid.UUID, err error) {
	entityA, err := m.store.GetEntity(ctx, a)
	if err != nil {
		return uuid.Nil, err
	}
	entityB, err := m.store.GetEntity(ctx, b)
	if err != nil {
		return uuid.Nil, err
	}
	if entityA.EntityType != entityB.EntityType {
		return uuid.Nil, coreerrors.NewInvariantError("cannot merge entities of different types")
	}

	canonicalEntity, secondary := entityA, entityB
	if entityB.CreatedAt.Before(entityA.CreatedAt) {
		canonicalEntity, secondary = entityB, entityA
	}

	_, err = m.store.AddFact(ctx, model.Fact{
		FactType:  model.FactTypeRelationship,
		Subject:   secondary.ID,
		Predicate: model.PredicateSameAs,
		Object:    &canonicalEntity.ID,
		ValidFrom: m.now(),
		Confidence: confidence,
		Provenance: model.Provenance{
			SourceType: model.SourceTypeDerivedComputation,
			SourceID:   "lifecycle.merge",
			Timestamp:  m.now(),
			RuleName:   "entity_merge",
		},
	})
	if err != nil {
		return uuid.Nil, err
	}

	if err := m.store.UpdateEntityStatus(ctx, secondary.ID, model.EntityStatusMerged, &canonicalEntity.ID, nil); err != nil {
		return uuid.Nil, err
	}

	if m.blocker != nil {
		if err := m.unindex(ctx, secondary); err != nil {
			return uuid.Nil, err
		}
	}

	m.audit(ctx, "ENTITY_MERGE", secondary.ID, map[string]any{
		"canonical": canonicalEntity.ID.String(), "secondary": secondary.ID.String(), "reason": reason,
	})
	return canonicalEntity.ID, nil
}

// Split implements spec §4.9's split operation: a new ACTIVE entity is
// created with split_from = original, and each named fact is
// superseded by an identical fact whose subject is the new entity.
func (m *Manager) Split(ctx context.Context, original uuid.UUID, factIDsToMove []uuid.UUID, reason string) (uuid.UUID, error) {
	origEntity, err := m.store.GetEntity(ctx, original)
	if err != nil {
		return uuid.Nil, err
	}

	newID, err := m.store.CreateEntity(ctx, origEntity.EntityType, origEntity.CanonicalName, origEntity.ResolutionConfidence, model.Provenance{
		SourceType: model.SourceTypeDerivedComputation, SourceID: "lifecycle.split", Timestamp: m.now(), RuleName: "entity_split",
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := m.store.UpdateEntityStatus(ctx, newID, model.EntityStatusActive, nil, &original); err != nil {
		return uuid.Nil, err
	}

	moved := 0
	for _, factID := range factIDsToMove {
		facts, err := m.store.CurrentFacts(ctx, original, nil)
		if err != nil {
			return uuid.Nil, err
		}
		var target *model.Fact
		for i := range facts {
			if facts[i].ID == factID {
				target = &facts[i]
				break
			}
		}
		if target == nil {
			continue
		}
		moved++
		newFact := *target
		newFact.Subject = newID
		newFact.IsDerived = true
		newFact.RuleName = "entity_split"
		newFact.DerivedFrom = []uuid.UUID{factID}
		newFact.Provenance = model.Provenance{
			SourceType: model.SourceTypeDerivedComputation, SourceID: "lifecycle.split",
			Timestamp: m.now(), RuleName: "entity_split",
		}
		if _, err := m.store.SupersedeFact(ctx, factID, newFact); err != nil {
			return uuid.Nil, err
		}
	}

	m.audit(ctx, "ENTITY_SPLIT", newID, map[string]any{
		"original": original.String(), "reason": reason, "facts_moved": moved,
	})
	return newID, nil
}

// Anonymize implements spec §4.9's anonymize operation: irreversible,
// replaces canonical_name with an opaque hash, deletes identifiers,
// nulls PII-bearing attribute fact values while preserving
// provenance, retains relationship facts, and unindexes the entity
// from blocking so it can never again surface as a resolution
// candidate. requestReference is carried on the audit entry; the
// entry itself carries no other PII.
func (m *Manager) Anonymize(ctx context.Context, entity uuid.UUID, requestReference string) error {
	e, err := m.store.GetEntity(ctx, entity)
	if err != nil {
		return err
	}
	if e.Status == model.EntityStatusAnonymized {
		return coreerrors.NewInvariantError("entity already anonymized")
	}

	if m.blocker != nil {
		if err := m.unindex(ctx, e); err != nil {
			return err
		}
	}

	if err := m.store.AnonymizeEntity(ctx, entity); err != nil {
		return err
	}

	m.audit(ctx, "ENTITY_ANONYMIZE", entity, map[string]any{"request_reference": requestReference})
	return nil
}

func (m *Manager) audit(ctx context.Context, eventType string, target uuid.UUID, payload map[string]any) {
	_, _ = m.store.AppendAudit(ctx, model.AuditEntry{
		EventType: eventType,
		Actor:     model.Actor{Type: model.ActorTypeSystem, ID: "lifecycle"},
		Target:    model.Target{Type: "entity", ID: target},
		Payload:   payload,
	})
}

// unindex removes e from the blocking index using a best-effort
// reconstruction of its blocking keys from canonical_name and current
// attribute facts, mirroring the same conventions pkg/resolver uses
// to build candidate context.
func (m *Manager) unindex(ctx context.Context, e model.Entity) error {
	birthYear := 0
	if e.EntityType == model.EntityTypePerson {
		if facts, err := m.store.CurrentFacts(ctx, e.ID, predicatePtr(model.PredicateBirthDate)); err == nil && len(facts) > 0 && facts[0].Value != nil {
			if t, err := time.Parse("2006-01-02", facts[0].Value.String); err == nil {
				birthYear = t.Year()
			}
		}
	}
	postalCode := ""
	normalizedName := e.CanonicalName
	if e.EntityType == model.EntityTypeAddress {
		addr := parseCanonicalAddress(e.CanonicalName)
		postalCode = addr.PostalCode
		normalizedName = addr.Street
	}
	return m.blocker.Unindex(ctx, e.ID, e.EntityType, normalizedName, birthYear, postalCode)
}

func predicatePtr(p model.Predicate) *model.Predicate { return &p }

func parseCanonicalAddress(canonical string) sv.ParsedAddress {
	streetPart, cityPart, _ := strings.Cut(canonical, ",")
	streetPart = strings.TrimSpace(streetPart)
	cityPart = strings.TrimSpace(cityPart)
	postal, city, _ := strings.Cut(cityPart, " ")
	return sv.NormalizeAddress(streetPart, postal, city)
}
