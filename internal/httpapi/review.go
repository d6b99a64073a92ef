package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

// resolutionQueue implements resolution_queue(limit).
func (h *handlers) resolutionQueue(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)

	decisions, err := h.deps.Review.ListPendingReview(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

type submitDecisionRequest struct {
	Mention      uuid.UUID  `json:"mention"`
	Verdict      string     `json:"verdict"` // HUMAN_MATCH or HUMAN_REJECT
	ChosenEntity *uuid.UUID `json:"chosen_entity,omitempty"`
	Reviewer     string     `json:"reviewer"`
}

// submitDecision implements resolution_submit_decision(mention, verdict, reviewer).
func (h *handlers) submitDecision(w http.ResponseWriter, r *http.Request) {
	var req submitDecisionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, coreerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if req.Mention == uuid.Nil || req.Reviewer == "" {
		writeError(w, coreerrors.NewValidationError("mention and reviewer are required"))
		return
	}

	decision, err := h.deps.Review.GetDecisionByMention(r.Context(), req.Mention)
	if err != nil {
		writeError(w, err)
		return
	}

	switch req.Verdict {
	case "HUMAN_MATCH":
		if req.ChosenEntity == nil {
			writeError(w, coreerrors.NewValidationError("chosen_entity is required for HUMAN_MATCH"))
			return
		}
		if err := h.deps.Queue.SubmitMatch(r.Context(), decision, *req.ChosenEntity, req.Reviewer); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "matched", "entity": *req.ChosenEntity})
	case "HUMAN_REJECT":
		entityID, err := h.deps.Queue.SubmitReject(r.Context(), decision, req.Reviewer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "rejected", "entity": entityID})
	default:
		writeError(w, coreerrors.NewValidationError("verdict must be HUMAN_MATCH or HUMAN_REJECT"))
	}
}

func decodeJSONBody(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
