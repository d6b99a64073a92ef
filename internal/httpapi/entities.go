package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/subgraph"
)

type entityResponse struct {
	Entity  model.Entity    `json:"entity"`
	Facts   []model.Fact    `json:"facts,omitempty"`
	SameAs  []uuid.UUID     `json:"same_as,omitempty"`
}

// getEntity implements get_entity(id, include_facts?, include_same_as?).
func (h *handlers) getEntity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, coreerrors.NewValidationError("id must be a UUID"))
		return
	}

	entity, err := h.deps.Entities.GetEntity(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := entityResponse{Entity: entity}
	if boolQuery(r, "include_facts") {
		facts, err := h.deps.Entities.CurrentFacts(r.Context(), id, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Facts = facts
	}
	if boolQuery(r, "include_same_as") {
		sameAs, err := h.deps.Entities.ListMergedInto(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.SameAs = sameAs
	}
	writeJSON(w, http.StatusOK, resp)
}

// getRelationships implements get_relationships(id, depth, predicates?, max_nodes).
func (h *handlers) getRelationships(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, coreerrors.NewValidationError("id must be a UUID"))
		return
	}
	depth := intQuery(r, "depth", 2)
	maxNodes := intQuery(r, "max_nodes", 0)
	var predicates []model.Predicate
	for _, p := range r.URL.Query()["predicate"] {
		predicates = append(predicates, model.Predicate(p))
	}

	result, err := subgraph.Expand(r.Context(), h.deps.Subgraph, id, depth, predicates, maxNodes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// searchEntities implements search_entities(query, type?, limit, offset).
func (h *handlers) searchEntities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, coreerrors.NewValidationError("q is required"))
		return
	}
	entityType := model.EntityType(r.URL.Query().Get("type"))
	limit := intQuery(r, "limit", 20)
	offset := intQuery(r, "offset", 0)

	results, err := h.deps.Entities.SearchEntities(r.Context(), query, entityType, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// lookupByIdentifier implements lookup_by_identifier(type, value).
func (h *handlers) lookupByIdentifier(w http.ResponseWriter, r *http.Request) {
	idType := model.IdentifierType(chi.URLParam(r, "type"))
	value := chi.URLParam(r, "value")

	entity, found, err := h.deps.Entities.LookupByIdentifier(r.Context(), idType, value)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, coreerrors.NewNotFoundError("entity"))
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func boolQuery(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
