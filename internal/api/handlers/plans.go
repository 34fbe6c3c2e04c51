package handlers

import (
	"io"
	"net/http"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/ports"
	"activity-plan-service/internal/services"
)

// maxPlanBody bounds submitted population documents.
const maxPlanBody = 32 << 20

type PlanHandler struct {
	Cache          ports.ReportCache
	DefaultVersion matsim.Version
}

// Validate checks every selected plan in a submitted MATSim population
// document. The version comes from ?version=, else DefaultVersion.
func (h *PlanHandler) Validate(w http.ResponseWriter, r *http.Request) {
	v := h.DefaultVersion
	if q := r.URL.Query().Get("version"); q != "" {
		parsed, err := matsim.ParseVersion(q)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "version must be 11 or 12")
			return
		}
		v = parsed
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlanBody))
	defer r.Body.Close()
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if len(body) == 0 {
		writeError(w, r, http.StatusBadRequest, "body must contain a population document")
		return
	}

	report, err := services.ValidatePlanXML(r.Context(), body, v, h.Cache)
	if err != nil {
		writeServiceError(w, r, "validate plans", err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
