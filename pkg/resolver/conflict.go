package resolver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// attachMention binds a newly auto-matched mention's identifiers to
// entity. Identifiers the entity already carries are skipped without
// calling AddIdentifier; one that AddIdentifier rejects with an
// invariant error (already bound to another entity) is logged and
// skipped; any other error aborts the match.
func (r *Resolver) attachMention(ctx context.Context, mention model.Mention, entity uuid.UUID) error {
	existing, err := r.store.ListIdentifiers(ctx, entity)
	if err != nil {
		return err
	}
	already := make(map[model.IdentifierType]string, len(existing))
	for _, id := range existing {
		already[id.Type] = id.Value
	}

	for idType, value := range mention.ExtractedIdentifiers {
		if already[idType] == value {
			continue
		}
		if err := r.store.AddIdentifier(ctx, entity, idType, value, 1.0, mention.Provenance); err != nil {
			if coreerrors.GetType(err) == coreerrors.ErrorTypeInvariant {
				r.log.Warn("identifier already bound elsewhere, skipping attach",
					zap.String("entity", entity.String()), zap.String("identifier_type", string(idType)))
				continue
			}
			return err
		}
	}
	return nil
}

// ResolveFactConflict implements spec §4.5.1: when attaching incoming
// over an existing current fact for the same (subject, predicate,
// [object]), the higher-authority source wins; ties break on the most
// recent extraction timestamp. supersede reports whether existing
// must be superseded by incoming.
func ResolveFactConflict(authority config.SourceAuthorityTable, existing, incoming model.Fact) (supersede bool) {
	existingLevel := authority.Lookup(string(existing.Provenance.SourceType), string(existing.Predicate))
	incomingLevel := authority.Lookup(string(incoming.Provenance.SourceType), string(incoming.Predicate))

	if incomingLevel != existingLevel {
		return incomingLevel < existingLevel // lower level number is higher authority
	}
	return incoming.Provenance.Timestamp.After(existing.Provenance.Timestamp)
}
