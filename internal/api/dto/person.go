package dto

type PersonSummaryResponse struct {
	PersonID    string   `json:"person_id"`
	HouseholdID string   `json:"household_id"`
	Score       *float64 `json:"score,omitempty"`
	Activities  int      `json:"activities"`
	Legs        int      `json:"legs"`
}

type ListPersonsResponse struct {
	Persons []PersonSummaryResponse `json:"persons"`
}

type PersonResponse struct {
	PersonID    string         `json:"person_id"`
	HouseholdID string         `json:"household_id"`
	Attributes  map[string]any `json:"attributes"`
	Plan        PlanResponse   `json:"plan"`
}
