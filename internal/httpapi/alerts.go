package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

// listAlerts implements alerts_list(type?, acknowledged?, limit).
func (h *handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	ruleName := r.URL.Query().Get("type")
	limit := intQuery(r, "limit", 100)

	var acknowledged *bool
	if raw := r.URL.Query().Get("acknowledged"); raw != "" {
		v := raw == "true"
		acknowledged = &v
	}

	alerts, err := h.deps.Alerts.ListAlerts(r.Context(), ruleName, acknowledged, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

type acknowledgeRequest struct {
	Actor string `json:"actor"`
}

// acknowledgeAlert implements alerts_acknowledge(id, actor).
func (h *handlers) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, coreerrors.NewValidationError("id must be a UUID"))
		return
	}
	var req acknowledgeRequest
	decodeJSONBody(r, &req)
	if req.Actor == "" {
		writeError(w, coreerrors.NewValidationError("actor is required"))
		return
	}

	if err := h.deps.Alerts.AcknowledgeAlert(r.Context(), id, req.Actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
