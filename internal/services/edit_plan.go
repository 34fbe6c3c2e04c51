package services

import (
	"context"
	"fmt"

	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

type ModeShiftRequest struct {
	PersonID       string
	Seq            int
	Mode           string
	UpdateDuration bool
}

// ShiftMode changes the mode of a leg and the rest of its tour, then saves
// the person. Nothing is saved when the shift is rejected.
func ShiftMode(
	ctx context.Context,
	repo ports.PopulationRepository,
	req ModeShiftRequest,
	speeds domain.ModeSpeeds,
) (_ *domain.Person, err error) {
	defer obs.Time(ctx, "plan.modeShift")(&err)

	rec, err := repo.GetPerson(ctx, req.PersonID)
	if err != nil {
		return nil, fmt.Errorf("shift mode: %w", err)
	}
	plan := rec.Person.Plan.Copy()
	if err := plan.ModeShift(req.Seq, req.Mode, speeds, req.UpdateDuration); err != nil {
		return nil, fmt.Errorf("shift mode: person %s: %w", req.PersonID, err)
	}
	return saveEditedPlan(ctx, repo, rec, plan)
}

// RemoveActivity drops the activity at seq and fills the gap, then saves
// the person. Nothing is saved when either step fails.
func RemoveActivity(ctx context.Context, repo ports.PopulationRepository, personID string, seq int) (_ *domain.Person, err error) {
	defer obs.Time(ctx, "plan.removeActivity")(&err)

	rec, err := repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("remove activity: %w", err)
	}

	plan := rec.Person.Plan.Copy()
	prev, next, err := plan.RemoveActivity(seq)
	if err != nil {
		return nil, fmt.Errorf("remove activity: person %s: %w", personID, err)
	}
	if err := plan.FillPlan(prev, next); err != nil {
		return nil, fmt.Errorf("remove activity: person %s: %w", personID, err)
	}
	return saveEditedPlan(ctx, repo, rec, plan)
}

// saveEditedPlan stores plan as the person's selected plan. Edits work on a
// copy so a failed edit never reaches a repository that shares pointers.
func saveEditedPlan(ctx context.Context, repo ports.PopulationRepository, rec ports.PersonRecord, plan *domain.Plan) (*domain.Person, error) {
	person := *rec.Person
	person.Plan = plan
	if err := repo.SavePerson(ctx, rec.HouseholdID, &person); err != nil {
		return nil, fmt.Errorf("save edited plan: %w", err)
	}
	return &person, nil
}
