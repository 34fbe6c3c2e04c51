package ports

import (
	"context"

	"activity-plan-service/internal/domain"
)

// PersonRecord is a stored person together with the household it belongs to.
type PersonRecord struct {
	HouseholdID string
	Person      *domain.Person
}

// PersonSummary is the listing view of a stored person.
type PersonSummary struct {
	PersonID    string
	HouseholdID string
	Score       *float64
	Activities  int
	Legs        int
}

// Port: a boundary for storing people and their selected plans.
type PopulationRepository interface {
	// Insert or replace a person.
	SavePerson(ctx context.Context, householdID string, p *domain.Person) error
	// Return domain.ErrPersonNotFound when no person has the id.
	GetPerson(ctx context.Context, personID string) (PersonRecord, error)
	// List every stored person ordered by household then person id.
	ListPersons(ctx context.Context) ([]PersonSummary, error)
	// Rebuild the whole population, grouped into households.
	LoadPopulation(ctx context.Context, name string) (*domain.Population, error)
}
