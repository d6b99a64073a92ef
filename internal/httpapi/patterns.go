package httpapi

import (
	"encoding/json"
	"net/http"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/patterns"
)

// shellNetworkDetect implements shell_network_detect(params) → matches.
func (h *handlers) shellNetworkDetect(w http.ResponseWriter, r *http.Request) {
	var params patterns.ShellNetworkParams
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, coreerrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
	}

	matches, err := h.deps.Patterns.ShellNetwork(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
