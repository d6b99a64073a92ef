package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

func statusFor(t coreerrors.ErrorType) int {
	switch t {
	case coreerrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case coreerrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case coreerrors.ErrorTypeInvariant, coreerrors.ErrorTypeContract:
		return http.StatusConflict
	case coreerrors.ErrorTypeConcurrency:
		return http.StatusServiceUnavailable
	case coreerrors.ErrorTypeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the external {kind, message, correlation_id}
// payload, with a fresh correlation id per request so support can trace
// a failure back through the audit log.
func writeError(w http.ResponseWriter, err error) {
	correlationID := uuid.NewString()
	problem := coreerrors.ToProblem(err, correlationID)
	writeJSON(w, statusFor(problem.Kind), problem)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
