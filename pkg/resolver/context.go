package resolver

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/store"
	"github.com/fraudwatch/sovereign-core/pkg/sv"
)

// Conventional ExtractedAttributes keys an upstream extractor is
// expected to populate when available. Unknown/absent keys simply
// leave the corresponding feature uncomputed rather than erroring.
const (
	attrBirthYear         = "birth_year"
	attrStreetLine        = "street_line"
	attrPostalCode        = "postal_code"
	attrCity              = "city"
	attrNetworkCompanies  = "network_companies" // comma-separated entity ids, person mentions
	attrKnownDirectors    = "directors"         // comma-separated entity ids, company mentions
)

// entityContext is the common shape feature computation needs from
// either side of a (mention, candidate) comparison.
type entityContext struct {
	NormalizedName string
	LegalForm      string
	BirthYear      int
	Address        sv.ParsedAddress
	Identifiers    map[model.IdentifierType]string
	Neighbors      []uuid.UUID // companies for a person, directors for a company
}

func mentionContext(m model.Mention) entityContext {
	ctx := entityContext{Identifiers: m.ExtractedIdentifiers}

	switch m.MentionType {
	case model.MentionTypeCompany:
		name := m.NormalizedForm
		if name == "" {
			name = m.SurfaceForm
		}
		ctx.NormalizedName, ctx.LegalForm = sv.NormalizeCompanyName(name)
		ctx.Neighbors = parseUUIDList(m.ExtractedAttributes[attrKnownDirectors])

	case model.MentionTypePerson:
		name := m.NormalizedForm
		if name == "" {
			name = m.SurfaceForm
		}
		ctx.NormalizedName = strings.ToUpper(strings.TrimSpace(name))
		if y, err := strconv.Atoi(m.ExtractedAttributes[attrBirthYear]); err == nil {
			ctx.BirthYear = y
		}
		ctx.Neighbors = parseUUIDList(m.ExtractedAttributes[attrNetworkCompanies])

	case model.MentionTypeAddress:
		ctx.Address = sv.NormalizeAddress(
			m.ExtractedAttributes[attrStreetLine],
			m.ExtractedAttributes[attrPostalCode],
			m.ExtractedAttributes[attrCity],
		)
	}
	return ctx
}

// candidateContext assembles the same shape for an already-resolved
// entity, pulling identifiers and neighbor facts from the store.
func (r *Resolver) candidateContext(ctx context.Context, entityType model.EntityType, id uuid.UUID) (entityContext, error) {
	entity, err := r.store.GetEntity(ctx, id)
	if err != nil {
		return entityContext{}, err
	}

	ec := entityContext{Identifiers: map[model.IdentifierType]string{}}
	identifiers, err := r.store.ListIdentifiers(ctx, id)
	if err != nil {
		return entityContext{}, err
	}
	for _, ident := range identifiers {
		ec.Identifiers[ident.Type] = ident.Value
	}

	switch entityType {
	case model.EntityTypeCompany:
		ec.NormalizedName, ec.LegalForm = sv.NormalizeCompanyName(entity.CanonicalName)
		neighbors, err := r.store.Neighbors(ctx, id, []model.Predicate{model.PredicateDirectorOf}, store.DirectionIncoming, 1000)
		if err != nil {
			return entityContext{}, err
		}
		ec.Neighbors = neighbors

	case model.EntityTypePerson:
		ec.NormalizedName = strings.ToUpper(strings.TrimSpace(entity.CanonicalName))
		for idType, value := range ec.Identifiers {
			if idType == model.IdentifierTypePersonnummer || idType == model.IdentifierTypeSamordningsnummer {
				if parsed := sv.ParsePersonnummer(value); parsed.Valid {
					ec.BirthYear = parsed.BirthDate.Year()
				}
			}
		}
		neighbors, err := r.store.Neighbors(ctx, id, []model.Predicate{model.PredicateDirectorOf, model.PredicateShareholderOf}, store.DirectionOutgoing, 1000)
		if err != nil {
			return entityContext{}, err
		}
		ec.Neighbors = neighbors

	case model.EntityTypeAddress:
		ec.Address = parseCanonicalAddress(entity.CanonicalName)
	}
	return ec, nil
}

// canonicalNameFor formats the name a newly created entity should
// carry. Addresses are stored in the "STREET NUMBER, POSTAL CITY"
// form that parseCanonicalAddress expects back.
func canonicalNameFor(m model.Mention, mctx entityContext) string {
	switch m.MentionType {
	case model.MentionTypeAddress:
		return strings.TrimSpace(mctx.Address.Street+" "+mctx.Address.StreetNumber) + ", " +
			strings.TrimSpace(mctx.Address.PostalCode+" "+mctx.Address.City)
	default:
		if mctx.NormalizedName != "" {
			if mctx.LegalForm != "" {
				return mctx.NormalizedName + " " + mctx.LegalForm
			}
			return mctx.NormalizedName
		}
		return m.SurfaceForm
	}
}

func parseCanonicalAddress(canonical string) sv.ParsedAddress {
	streetPart, cityPart, _ := strings.Cut(canonical, ",")
	streetPart = strings.TrimSpace(streetPart)
	cityPart = strings.TrimSpace(cityPart)

	postal, city, _ := strings.Cut(cityPart, " ")
	return sv.NormalizeAddress(streetPart, postal, city)
}

func parseUUIDList(csv string) []uuid.UUID {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		if id, err := uuid.Parse(strings.TrimSpace(p)); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
