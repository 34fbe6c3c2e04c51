package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/api/dto"
	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/ports"
	"activity-plan-service/internal/services"
)

// PersonHandler exposes stored persons and edits to their plans.
type PersonHandler struct {
	Repo   ports.PopulationRepository
	Speeds domain.ModeSpeeds
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.Repo.ListPersons(r.Context())
	if err != nil {
		writeServiceError(w, r, "list persons", err)
		return
	}

	res := dto.ListPersonsResponse{
		Persons: make([]dto.PersonSummaryResponse, 0, len(people)),
	}
	for _, p := range people {
		res.Persons = append(res.Persons, dto.PersonSummaryResponse{
			PersonID:    p.PersonID,
			HouseholdID: p.HouseholdID,
			Score:       p.Score,
			Activities:  p.Activities,
			Legs:        p.Legs,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "get person", err)
		return
	}
	writeJSON(w, r, http.StatusOK, personResponse(rec.HouseholdID, rec.Person))
}

func personResponse(hid string, p *domain.Person) dto.PersonResponse {
	return dto.PersonResponse{
		PersonID:    p.PID,
		HouseholdID: hid,
		Attributes:  p.Attributes,
		Plan:        dto.NewPlan(p.Plan),
	}
}

// Matsim renders the person as a v12 population document.
func (h *PersonHandler) Matsim(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "get person", err)
		return
	}

	var buf strings.Builder
	mw, err := matsim.NewWriter(&buf, nil, matsim.DefaultWriteOptions())
	if err == nil {
		hh := domain.NewHousehold(rec.HouseholdID, nil)
		hh.Add(rec.Person)
		err = mw.AddHousehold(hh)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		writeServiceError(w, r, "render person", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}

func (h *PersonHandler) ModeShift(w http.ResponseWriter, r *http.Request) {
	var req dto.ModeShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode := strings.TrimSpace(req.Mode)
	if req.Seq == nil || mode == "" {
		writeError(w, r, http.StatusBadRequest, "seq and mode are required")
		return
	}

	speeds := h.Speeds
	if speeds == nil {
		speeds = domain.DefaultModeSpeeds
	}
	p, err := services.ShiftMode(r.Context(), h.Repo, services.ModeShiftRequest{
		PersonID:       chi.URLParam(r, "id"),
		Seq:            *req.Seq,
		Mode:           mode,
		UpdateDuration: req.UpdateDuration,
	}, speeds)
	if err != nil {
		writeServiceError(w, r, "mode shift", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewPlan(p.Plan))
}

func (h *PersonHandler) RemoveActivity(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq < 0 {
		writeError(w, r, http.StatusBadRequest, "seq must be a non-negative integer")
		return
	}

	p, err := services.RemoveActivity(r.Context(), h.Repo, chi.URLParam(r, "id"), seq)
	if err != nil {
		writeServiceError(w, r, "remove activity", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewPlan(p.Plan))
}
