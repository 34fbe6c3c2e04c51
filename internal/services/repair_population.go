package services

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

type RepairOptions struct {
	Workers         int
	SimplifyPTTrips bool
	Crop            bool
	FixTimes        bool
	FixLocations    bool
}

func DefaultRepairOptions() RepairOptions {
	return RepairOptions{Workers: 4, Crop: true, FixTimes: true, FixLocations: true}
}

// RepairFailure is a person whose plan is still invalid after repair.
type RepairFailure struct {
	PersonID string
	Err      error
}

type RepairReport struct {
	Persons  int
	Repaired int
	Failures []RepairFailure
}

// RepairPopulation applies the selected fixes to every stored plan using a
// bounded pool of workers, then validates and saves each plan. Plans that
// stay invalid are still saved and reported as failures. A storage error
// stops the run.
func RepairPopulation(ctx context.Context, repo ports.PopulationRepository, opts RepairOptions) (_ *RepairReport, err error) {
	defer obs.Time(ctx, "population.repair")(&err)

	people, err := repo.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("repair population: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	report := &RepairReport{Persons: len(people)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, summary := range people {
		g.Go(func() error {
			rec, err := repo.GetPerson(gctx, summary.PersonID)
			if err != nil {
				return fmt.Errorf("repair population: %w", err)
			}

			plan := rec.Person.Plan
			if opts.SimplifyPTTrips {
				plan.SimplifyPTTrips(nil)
			}
			plan.Fix(opts.Crop, opts.FixTimes, opts.FixLocations)
			verr := plan.Validate()

			if err := repo.SavePerson(gctx, rec.HouseholdID, rec.Person); err != nil {
				return fmt.Errorf("repair population: %w", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if verr != nil {
				log.Printf("repair: plan still invalid pid=%s err=%v", rec.Person.PID, verr)
				report.Failures = append(report.Failures, RepairFailure{PersonID: rec.Person.PID, Err: verr})
				return nil
			}
			report.Repaired++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(report.Failures, func(a, b RepairFailure) int {
		return cmp.Compare(a.PersonID, b.PersonID)
	})
	return report, nil
}
