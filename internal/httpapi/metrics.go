package httpapi

import "net/http"

// accuracyMetrics implements accuracy_metrics() → {specificity, sensitivity, counts}.
// When no ground-truth evaluator is wired in (Deps.GroundTruth is nil),
// it reports zero counts rather than erroring.
func (h *handlers) accuracyMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.GroundTruth == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"sensitivity": 0, "specificity": 0, "total_pairs": 0,
		})
		return
	}

	report, err := h.deps.GroundTruth.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensitivity":     report.Sensitivity,
		"specificity":     report.Specificity,
		"total_pairs":     report.TotalPairs,
		"true_positives":  report.TruePositives,
		"false_negatives": report.FalseNegatives,
		"true_negatives":  report.TrueNegatives,
		"false_positives": report.FalsePositives,
		"meets_targets":   report.MeetsTargets,
	})
}
