package services

import (
	"context"
	"fmt"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

// ExportPopulation writes every stored person to a MATSim population file.
// For V11, attributesPath receives the objectAttributes document. It returns
// the number of persons written.
func ExportPopulation(
	ctx context.Context,
	repo ports.PopulationRepository,
	path, attributesPath string,
	opts matsim.WriteOptions,
) (_ int, err error) {
	defer obs.Time(ctx, "population.export")(&err)

	pop, err := repo.LoadPopulation(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("export population: %w", err)
	}
	if err := matsim.WriteFile(pop, path, attributesPath, opts); err != nil {
		return 0, fmt.Errorf("export population: %w", err)
	}
	return pop.Size(), nil
}
