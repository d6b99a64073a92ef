// Package blocking generates a bounded candidate set for a mention so
// the scorer never has to compare it against every entity of its type.
// Four strategies run per entity type: exact identifier, a phonetic
// key over the normalized name, a name-prefix+birth-year bucket for
// persons, and a postal-code prefix bucket for addresses. Candidate
// key sets are memoized so repeated blocking against a stable
// population does not repeatedly touch the store.
package blocking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/sv"
)

// Strategy names one blocking key scheme. Index keys are namespaced by
// (entity_type, strategy) so a phonetic key computed for a PERSON
// never collides with one computed for a COMPANY.
type Strategy string

const (
	StrategyPhonetic       Strategy = "PHONETIC"
	StrategyNamePrefixYear Strategy = "NAME_PREFIX_YEAR"
	StrategyPostalPrefix   Strategy = "POSTAL_PREFIX"
)

// IdentifierLookup is the subset of Store the exact-identifier
// strategy needs. Satisfied by *store.Store without blocking
// importing it directly.
type IdentifierLookup interface {
	LookupByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (model.Entity, bool, error)
}

// Index holds, per (entity_type, strategy, key), the set of entity ids
// that currently fall in that bucket. Implementations must support
// concurrent incremental updates.
type Index interface {
	Add(ctx context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error
	Remove(ctx context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error
	Members(ctx context.Context, entityType model.EntityType, strategy Strategy, key string) ([]uuid.UUID, error)
}

// Blocker produces candidate entity ids for a mention. Exact
// identifiers short-circuit the other strategies, per spec: a single
// authoritative match is returned alone rather than diluted by fuzzy
// candidates.
type Blocker struct {
	identifiers IdentifierLookup
	index       Index
}

func New(identifiers IdentifierLookup, index Index) *Blocker {
	return &Blocker{identifiers: identifiers, index: index}
}

// CandidateInput is the subset of a mention's extracted fields the
// blocker needs to compute keys; callers assemble it from whatever
// extraction produced (parsed identifiers, a normalized name, a
// birth year, a postal code).
type CandidateInput struct {
	EntityType     model.EntityType
	Identifiers    map[model.IdentifierType]string
	NormalizedName string
	BirthYear      int // 0 if unknown
	PostalCode     string
}

// Candidates returns the bounded set of entity ids worth scoring
// against in. If an exact identifier resolves, it is returned alone.
func (b *Blocker) Candidates(ctx context.Context, in CandidateInput) ([]uuid.UUID, error) {
	for idType, value := range in.Identifiers {
		entity, found, err := b.identifiers.LookupByIdentifier(ctx, idType, value)
		if err != nil {
			return nil, fmt.Errorf("blocking: exact identifier lookup: %w", err)
		}
		if found {
			return []uuid.UUID{entity.ID}, nil
		}
	}

	seen := make(map[uuid.UUID]struct{})
	add := func(ids []uuid.UUID) {
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	if in.NormalizedName != "" {
		key := PhoneticKey(in.NormalizedName)
		ids, err := b.index.Members(ctx, in.EntityType, StrategyPhonetic, key)
		if err != nil {
			return nil, fmt.Errorf("blocking: phonetic lookup: %w", err)
		}
		add(ids)
	}

	if in.EntityType == model.EntityTypePerson && in.NormalizedName != "" && in.BirthYear != 0 {
		key := namePrefixYearKey(in.NormalizedName, in.BirthYear)
		ids, err := b.index.Members(ctx, in.EntityType, StrategyNamePrefixYear, key)
		if err != nil {
			return nil, fmt.Errorf("blocking: name-prefix/year lookup: %w", err)
		}
		add(ids)
	}

	if in.EntityType == model.EntityTypeAddress && in.PostalCode != "" {
		key := postalPrefixKey(in.PostalCode)
		ids, err := b.index.Members(ctx, in.EntityType, StrategyPostalPrefix, key)
		if err != nil {
			return nil, fmt.Errorf("blocking: postal-prefix lookup: %w", err)
		}
		add(ids)
	}

	out := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

// Index registers entity under every strategy applicable to its
// entity type, given its normalized name, optional birth year (0 if
// unknown/not a person), and optional postal code (empty if not an
// address). Called by the resolver when it mints a new entity; nothing
// re-indexes an entity when its attributes change, and an entity
// created by a split is not indexed.
func (b *Blocker) Index(ctx context.Context, entity uuid.UUID, entityType model.EntityType, normalizedName string, birthYear int, postalCode string) error {
	if normalizedName != "" {
		if err := b.index.Add(ctx, entityType, StrategyPhonetic, PhoneticKey(normalizedName), entity); err != nil {
			return err
		}
	}
	if entityType == model.EntityTypePerson && normalizedName != "" && birthYear != 0 {
		if err := b.index.Add(ctx, entityType, StrategyNamePrefixYear, namePrefixYearKey(normalizedName, birthYear), entity); err != nil {
			return err
		}
	}
	if entityType == model.EntityTypeAddress && postalCode != "" {
		if err := b.index.Add(ctx, entityType, StrategyPostalPrefix, postalPrefixKey(postalCode), entity); err != nil {
			return err
		}
	}
	return nil
}

// Unindex removes entity from every bucket it would occupy given the
// same attributes originally passed to Index. Called on merge (the
// losing side) and anonymization, so those entities no longer surface
// as candidates; split does not call it.
func (b *Blocker) Unindex(ctx context.Context, entity uuid.UUID, entityType model.EntityType, normalizedName string, birthYear int, postalCode string) error {
	if normalizedName != "" {
		if err := b.index.Remove(ctx, entityType, StrategyPhonetic, PhoneticKey(normalizedName), entity); err != nil {
			return err
		}
	}
	if entityType == model.EntityTypePerson && normalizedName != "" && birthYear != 0 {
		if err := b.index.Remove(ctx, entityType, StrategyNamePrefixYear, namePrefixYearKey(normalizedName, birthYear), entity); err != nil {
			return err
		}
	}
	if entityType == model.EntityTypeAddress && postalCode != "" {
		if err := b.index.Remove(ctx, entityType, StrategyPostalPrefix, postalPrefixKey(postalCode), entity); err != nil {
			return err
		}
	}
	return nil
}

// namePrefixYearKey buckets persons by the first three characters of
// their normalized surname-first name plus birth year, a coarse but
// cheap net for the common case of a typo'd name with a reliable DOB.
func namePrefixYearKey(normalizedName string, birthYear int) string {
	prefix := normalizedName
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s:%d", prefix, birthYear)
}

// postalPrefixKey buckets addresses by the postal code's area digits
// (first three of the five), matching Swedish postal-area boundaries.
func postalPrefixKey(postalCode string) string {
	parsed := sv.NormalizeAddress("", postalCode, "")
	code := parsed.PostalCode
	if code == "" {
		code = postalCode
	}
	if len(code) > 3 {
		return code[:3]
	}
	return code
}
