package services

import (
	"context"
	"fmt"
	"io"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

type ImportOptions struct {
	Read matsim.ReadOptions
	// person attribute naming the household; people without it form
	// single-person households
	HouseholdKey string
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{Read: matsim.DefaultReadOptions(), HouseholdKey: "hid"}
}

type ImportResult struct {
	Persons    int
	Households int
}

// ImportPopulation streams persons from a MATSim population document into
// the repository. It stops at the first malformed person.
func ImportPopulation(
	ctx context.Context,
	r io.Reader,
	repo ports.PopulationRepository,
	opts ImportOptions,
) (res ImportResult, err error) {
	defer obs.Time(ctx, "population.import")(&err)

	households := make(map[string]struct{})
	for person, perr := range matsim.NewReader(r, opts.Read).Persons() {
		if perr != nil {
			return res, fmt.Errorf("import population: %w", perr)
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("import population: %w", err)
		}

		hid := matsim.HouseholdID(person, opts.HouseholdKey)
		if hid == "" {
			hid = person.PID
		}
		if err := repo.SavePerson(ctx, hid, person); err != nil {
			return res, fmt.Errorf("import population: %w", err)
		}

		res.Persons++
		households[hid] = struct{}{}
	}
	res.Households = len(households)
	return res, nil
}

// ImportFile imports a plain or gzip compressed population file.
func ImportFile(ctx context.Context, path string, repo ports.PopulationRepository, opts ImportOptions) (ImportResult, error) {
	rc, err := matsim.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import population: %w", err)
	}
	defer rc.Close()
	return ImportPopulation(ctx, rc, repo, opts)
}
