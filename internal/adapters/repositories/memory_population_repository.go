package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/ports"
)

// MemoryPopulationRepository keeps people in a map. Stored persons are
// shared with the caller, not copied. Used for tests and dry runs.
type MemoryPopulationRepository struct {
	mu      sync.RWMutex
	records map[string]ports.PersonRecord
}

var _ ports.PopulationRepository = (*MemoryPopulationRepository)(nil)

func NewMemoryPopulationRepository() *MemoryPopulationRepository {
	return &MemoryPopulationRepository{records: make(map[string]ports.PersonRecord)}
}

func (m *MemoryPopulationRepository) SavePerson(ctx context.Context, householdID string, p *domain.Person) error {
	if p == nil || p.PID == "" {
		return fmt.Errorf("save person: person id must not be empty")
	}
	if householdID == "" {
		householdID = p.PID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[p.PID] = ports.PersonRecord{HouseholdID: householdID, Person: p}
	return nil
}

func (m *MemoryPopulationRepository) GetPerson(ctx context.Context, personID string) (ports.PersonRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[personID]
	if !ok {
		return ports.PersonRecord{}, fmt.Errorf("get person %s: %w", personID, domain.ErrPersonNotFound)
	}
	return r, nil
}

func (m *MemoryPopulationRepository) sorted() []ports.PersonRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ports.PersonRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b ports.PersonRecord) int {
		return cmp.Or(cmp.Compare(a.HouseholdID, b.HouseholdID), cmp.Compare(a.Person.PID, b.Person.PID))
	})
	return out
}

func (m *MemoryPopulationRepository) ListPersons(ctx context.Context) ([]ports.PersonSummary, error) {
	records := m.sorted()
	out := make([]ports.PersonSummary, 0, len(records))
	for _, r := range records {
		activities, legs := countComponents(r.Person.Plan)
		out = append(out, ports.PersonSummary{
			PersonID:    r.Person.PID,
			HouseholdID: r.HouseholdID,
			Score:       r.Person.Plan.Score,
			Activities:  activities,
			Legs:        legs,
		})
	}
	return out, nil
}

func (m *MemoryPopulationRepository) LoadPopulation(ctx context.Context, name string) (*domain.Population, error) {
	pop := domain.NewPopulation(name)
	for _, r := range m.sorted() {
		pop.AddPerson(r.HouseholdID, r.Person)
	}
	return pop, nil
}
