package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/platform/db"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

// SQLPopulationRepository stores each person as one row. The selected plan
// is kept as a MATSim v12 <plan> fragment and attributes as typed JSON.
// The home location, activity areas and leg distances without a route go
// to a JSON column next to the fragment.
//
// Non-selected plans are not persisted. A plan with an activity the MATSim
// writer rejects (for example one located only by area) cannot be saved.
type SQLPopulationRepository struct {
	DB     *sql.DB
	Driver string
}

var _ ports.PopulationRepository = (*SQLPopulationRepository)(nil)

func NewSQLPopulationRepository(conn *sql.DB, driver string) *SQLPopulationRepository {
	return &SQLPopulationRepository{DB: conn, Driver: driver}
}

func (s *SQLPopulationRepository) q(query string) string {
	return db.Rebind(s.Driver, query)
}

// SavePerson inserts or replaces the person row.
func (s *SQLPopulationRepository) SavePerson(ctx context.Context, householdID string, p *domain.Person) error {
	if s.DB == nil {
		return errors.New("population repository: DB is nil")
	}
	if p == nil || p.PID == "" {
		return errors.New("save person: person id must not be empty")
	}
	if householdID == "" {
		householdID = p.PID
	}

	planXML, err := matsim.EncodePlan(p.Plan, matsim.V12)
	if err != nil {
		return fmt.Errorf("save person %s: encode plan: %w", p.PID, err)
	}
	extras, err := marshalPlanExtras(p.Plan)
	if err != nil {
		return fmt.Errorf("save person %s: %w", p.PID, err)
	}
	attrs, err := matsim.MarshalAttributes(p.Attributes)
	if err != nil {
		return fmt.Errorf("save person %s: %w", p.PID, err)
	}

	var score sql.NullFloat64
	if p.Plan.Score != nil {
		score = sql.NullFloat64{Float64: *p.Plan.Score, Valid: true}
	}
	activities, legs := countComponents(p.Plan)

	query := `
	INSERT INTO persons (person_id, household_id, attributes, plan_xml, plan_extras, score, activities, legs)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (person_id) DO UPDATE
	SET household_id = EXCLUDED.household_id,
		attributes = EXCLUDED.attributes,
		plan_xml = EXCLUDED.plan_xml,
		plan_extras = EXCLUDED.plan_extras,
		score = EXCLUDED.score,
		activities = EXCLUDED.activities,
		legs = EXCLUDED.legs;
	`
	_, err = s.DB.ExecContext(ctx, s.q(query),
		p.PID, householdID, string(attrs), string(planXML), string(extras), score, activities, legs)
	if err != nil {
		return fmt.Errorf("save person %s: %w", p.PID, err)
	}
	return nil
}

func countComponents(plan *domain.Plan) (activities, legs int) {
	for _, c := range plan.Day {
		if _, ok := c.(*domain.Activity); ok {
			activities++
		} else {
			legs++
		}
	}
	return activities, legs
}

// GetPerson returns domain.ErrPersonNotFound for an unknown id.
func (s *SQLPopulationRepository) GetPerson(ctx context.Context, personID string) (_ ports.PersonRecord, err error) {
	defer obs.Time(ctx, "population.repo.GetPerson")(&err)

	if s.DB == nil {
		return ports.PersonRecord{}, errors.New("population repository: DB is nil")
	}

	query := `
	SELECT household_id, attributes, plan_xml, plan_extras
	FROM persons
	WHERE person_id = ?;
	`
	var hid, attrs, planXML, extras string
	err = s.DB.QueryRowContext(ctx, s.q(query), personID).Scan(&hid, &attrs, &planXML, &extras)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.PersonRecord{}, fmt.Errorf("get person %s: %w", personID, domain.ErrPersonNotFound)
	}
	if err != nil {
		return ports.PersonRecord{}, fmt.Errorf("get person %s: %w", personID, err)
	}

	person, err := decodePerson(personID, attrs, planXML, extras)
	if err != nil {
		return ports.PersonRecord{}, err
	}
	return ports.PersonRecord{HouseholdID: hid, Person: person}, nil
}

func decodePerson(pid, attrs, planXML, extras string) (*domain.Person, error) {
	a, err := matsim.UnmarshalAttributes([]byte(attrs))
	if err != nil {
		return nil, fmt.Errorf("decode person %s: %w", pid, err)
	}
	plan, err := matsim.DecodePlan([]byte(planXML), matsim.V12)
	if err != nil {
		return nil, fmt.Errorf("decode person %s: %w", pid, err)
	}
	if err := applyPlanExtras(plan, extras); err != nil {
		return nil, fmt.Errorf("decode person %s: %w", pid, err)
	}
	person := domain.NewPerson(pid, a, domain.Location{})
	person.Plan = plan
	return person, nil
}

func (s *SQLPopulationRepository) ListPersons(ctx context.Context) (_ []ports.PersonSummary, err error) {
	defer obs.Time(ctx, "population.repo.ListPersons")(&err)

	if s.DB == nil {
		return nil, errors.New("population repository: DB is nil")
	}

	query := `
	SELECT person_id, household_id, score, activities, legs
	FROM persons
	ORDER BY household_id, person_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list persons: query persons table: %w", err)
	}
	defer rows.Close()

	out := make([]ports.PersonSummary, 0, 64)
	for rows.Next() {
		var ps ports.PersonSummary
		var score sql.NullFloat64
		if err := rows.Scan(&ps.PersonID, &ps.HouseholdID, &score, &ps.Activities, &ps.Legs); err != nil {
			return nil, fmt.Errorf("list persons: scan row: %w", err)
		}
		if score.Valid {
			v := score.Float64
			ps.Score = &v
		}
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list persons: row iteration: %w", err)
	}
	return out, nil
}

// LoadPopulation decodes every stored person, keeping household order by id.
func (s *SQLPopulationRepository) LoadPopulation(ctx context.Context, name string) (_ *domain.Population, err error) {
	defer obs.Time(ctx, "population.repo.LoadPopulation")(&err)

	if s.DB == nil {
		return nil, errors.New("population repository: DB is nil")
	}

	query := `
	SELECT person_id, household_id, attributes, plan_xml, plan_extras
	FROM persons
	ORDER BY household_id, person_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load population: query persons table: %w", err)
	}
	defer rows.Close()

	pop := domain.NewPopulation(name)
	for rows.Next() {
		var pid, hid, attrs, planXML, extras string
		if err := rows.Scan(&pid, &hid, &attrs, &planXML, &extras); err != nil {
			return nil, fmt.Errorf("load population: scan row: %w", err)
		}
		person, err := decodePerson(pid, attrs, planXML, extras)
		if err != nil {
			return nil, fmt.Errorf("load population: %w", err)
		}
		pop.AddPerson(hid, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load population: row iteration: %w", err)
	}
	return pop, nil
}
