package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/api/dto"
	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/services"
)

func newTestRouter(t *testing.T) (http.Handler, *repositories.MemoryPopulationRepository) {
	t.Helper()
	repo := repositories.NewMemoryPopulationRepository()

	home := domain.NewPointLocation(0, 0)
	work := domain.NewPointLocation(4000, 3000)
	p := domain.NewPerson("p1", map[string]any{"age": int64(30)}, home)
	err := p.Plan.Add(
		domain.NewActivity(1, "home", home, domain.StartOfDay, domain.Minutes(480)),
		domain.NewLeg(1, "car", domain.Minutes(480), domain.Minutes(510)),
		domain.NewActivity(2, "work", work, domain.Minutes(510), domain.Minutes(1020)),
		domain.NewLeg(2, "car", domain.Minutes(1020), domain.Minutes(1050)),
		domain.NewActivity(3, "home", home, domain.Minutes(1050), domain.EndOfDay),
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	p.Plan.Autocomplete()
	if err := repo.SavePerson(context.Background(), "h1", p); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	return NewRouter(Deps{Repo: repo}), repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthSetsRequestID(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "given" {
		t.Fatalf("X-Request-ID = %q, want given", got)
	}
}

func TestListAndGetPerson(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/persons", "")
	var list dto.ListPersonsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Persons) != 1 || list.Persons[0].PersonID != "p1" || list.Persons[0].Legs != 2 {
		t.Fatalf("persons = %+v", list.Persons)
	}

	rec = do(t, h, http.MethodGet, "/persons/p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var person dto.PersonResponse
	if err := json.NewDecoder(rec.Body).Decode(&person); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if person.HouseholdID != "h1" || !person.Plan.Valid || !person.Plan.Closed {
		t.Fatalf("person = %+v", person)
	}
	leg := person.Plan.Components[1]
	if leg.Type != "leg" || leg.Distance == nil || *leg.Distance != 5000 || leg.Purpose != "" {
		t.Fatalf("leg = %+v", leg)
	}
	if person.Plan.Components[4].EndTime != "24:00:00" {
		t.Fatalf("last end = %s", person.Plan.Components[4].EndTime)
	}

	rec = do(t, h, http.MethodGet, "/persons/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPersonMatsim(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/persons/p1/matsim", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`<person id="p1">`, `name="hid"`, `<activity type="work"`, "population_v6.dtd"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestModeShift(t *testing.T) {
	h, repo := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/persons/p1/mode-shift", `{"seq":1,"mode":"cycle"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	stored, _ := repo.GetPerson(context.Background(), "p1")
	for l := range stored.Person.Plan.Legs() {
		if l.Mode != "cycle" {
			t.Fatalf("stored leg mode = %s, want cycle", l.Mode)
		}
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"unknown field", `{"seq":1,"mode":"bus","speed":3}`, http.StatusBadRequest},
		{"missing seq", `{"mode":"bus"}`, http.StatusBadRequest},
		{"activity index", `{"seq":2,"mode":"bus"}`, http.StatusUnprocessableEntity},
		{"unknown speed", `{"seq":1,"mode":"hover","update_duration":true}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/persons/p1/mode-shift", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestRemoveActivity(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodDelete, "/persons/p1/activities/x", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, "/persons/p1/activities/1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/persons/p1/activities/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var plan dto.PlanResponse
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(plan.Components) != 1 || plan.Components[0].Act != "home" {
		t.Fatalf("plan = %+v", plan.Components)
	}
}

const validateBody = `<population>
  <person id="a"><plan selected="yes">
    <activity type="home" x="0" y="0" end_time="08:00:00"/>
    <leg mode="walk" trav_time="00:20:00"/>
    <activity type="shop" x="900" y="0" end_time="21:00:00"/>
  </plan></person>
</population>`

func TestValidatePlans(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/plans/validate?version=12", validateBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var report services.ValidationReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Persons != 1 || report.Invalid != 1 || report.People[0].ValidEndOfDay {
		t.Fatalf("report = %+v", report)
	}

	if rec := do(t, h, http.MethodPost, "/plans/validate?version=7", validateBody); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad version status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/plans/validate", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/plans/validate", "<population><person"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed status = %d, want 422", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/persons", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing Access-Control-Allow-Origin, headers %v", rec.Header())
	}
}
