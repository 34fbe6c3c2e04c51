package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"

	"activity-plan-service/internal/adapters/cache"
	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

// PersonValidation holds the plan checks for one person.
type PersonValidation struct {
	PersonID        string   `json:"person_id"`
	Valid           bool     `json:"valid"`
	ValidSequence   bool     `json:"valid_sequence"`
	ValidTimes      bool     `json:"valid_times"`
	ValidStartOfDay bool     `json:"valid_start_of_day"`
	ValidEndOfDay   bool     `json:"valid_end_of_day"`
	ValidLocations  bool     `json:"valid_locations"`
	Closed          bool     `json:"closed"`
	HomeBased       bool     `json:"home_based"`
	Activities      []string `json:"activity_classes"`
	Modes           []string `json:"mode_classes"`
	Errors          []string `json:"errors,omitempty"`
}

type ValidationReport struct {
	Version int                `json:"version"`
	Persons int                `json:"persons"`
	Valid   int                `json:"valid"`
	Invalid int                `json:"invalid"`
	People  []PersonValidation `json:"people"`
	Cached  bool               `json:"cached"`
}

// ValidatePlanXML parses a population document and checks every selected
// plan. Reports are cached by content when a cache is given; cache errors
// are logged and otherwise ignored. A malformed document fails with
// domain.ErrInvalidMatsim.
func ValidatePlanXML(ctx context.Context, body []byte, v matsim.Version, rc ports.ReportCache) (_ *ValidationReport, err error) {
	defer obs.Time(ctx, "plans.validate")(&err)

	if err := v.Validate(); err != nil {
		return nil, err
	}

	key := cache.ReportKey(int(v), body)
	if rc != nil {
		b, ok, err := rc.Get(ctx, key)
		if err != nil {
			log.Printf("validate plans: cache get failed key=%s err=%v", key, err)
		}
		if ok {
			var report ValidationReport
			raw, match := cache.OpenReport(body, b)
			if match && json.Unmarshal(raw, &report) == nil {
				report.Cached = true
				return &report, nil
			}
			log.Printf("validate plans: discarding cache entry for another body key=%s", key)
		}
	}

	// leg boundaries keep their route links so they are checked against
	// the activities instead of being copied from them
	opts := matsim.DefaultReadOptions()
	opts.Version = v
	opts.Autocomplete = false

	report := &ValidationReport{Version: int(v), People: []PersonValidation{}}
	for person, perr := range matsim.NewReader(bytes.NewReader(body), opts).Persons() {
		if perr != nil {
			if !errors.Is(perr, domain.ErrInvalidMatsim) {
				perr = fmt.Errorf("%w: %v", domain.ErrInvalidMatsim, perr)
			}
			return nil, fmt.Errorf("validate plans: %w", perr)
		}

		pv := validatePerson(person)
		report.People = append(report.People, pv)
		report.Persons++
		if pv.Valid {
			report.Valid++
		} else {
			report.Invalid++
		}
	}

	if rc != nil {
		b, err := json.Marshal(report)
		if err == nil {
			b, err = cache.SealReport(body, b)
		}
		if err == nil {
			err = rc.Put(ctx, key, b)
		}
		if err != nil {
			log.Printf("validate plans: cache put failed key=%s err=%v", key, err)
		}
	}
	return report, nil
}

// completeLegLocations fills leg boundaries the document did not give, or
// gave in a kind the neighbouring activity cannot be compared with.
func completeLegLocations(plan *domain.Plan) {
	for i, c := range plan.Day {
		leg, ok := c.(*domain.Leg)
		if !ok {
			continue
		}
		if i > 0 {
			if a, ok := plan.Day[i-1].(*domain.Activity); ok {
				if _, err := leg.StartLocation.Equal(a.Location); err != nil {
					leg.StartLocation = a.Location.Copy()
				}
			}
		}
		if i+1 < len(plan.Day) {
			if a, ok := plan.Day[i+1].(*domain.Activity); ok {
				if _, err := leg.EndLocation.Equal(a.Location); err != nil {
					leg.EndLocation = a.Location.Copy()
				}
			}
		}
	}
}

func validatePerson(p *domain.Person) PersonValidation {
	plan := p.Plan
	completeLegLocations(plan)

	var durationErrs []string
	for i, c := range plan.Day {
		if c.End().Before(c.Start()) {
			durationErrs = append(durationErrs, fmt.Sprintf("%v: component %d ends at %s before it starts at %s",
				domain.ErrTimeConsistency, i, domain.FormatTimeOfDay(c.End()), domain.FormatTimeOfDay(c.Start())))
		}
	}

	pv := PersonValidation{
		PersonID:        p.PID,
		ValidSequence:   plan.ValidSequence(),
		ValidTimes:      plan.ValidTimeSequence() && len(durationErrs) == 0,
		ValidStartOfDay: plan.ValidStartOfDayTime(),
		ValidEndOfDay:   plan.ValidEndOfDayTime(),
		ValidLocations:  plan.ValidLocations(),
		Closed:          plan.Closed(),
		HomeBased:       plan.HomeBased(),
		Activities:      slices.Sorted(maps.Keys(plan.ActivityClasses())),
		Modes:           slices.Sorted(maps.Keys(plan.ModeClasses())),
	}

	for _, err := range []error{plan.ValidateSequence(), plan.ValidateTimes(), plan.ValidateLocations()} {
		if err != nil {
			pv.Errors = append(pv.Errors, err.Error())
		}
	}
	pv.Errors = append(pv.Errors, durationErrs...)
	if !pv.ValidStartOfDay {
		pv.Errors = append(pv.Errors, "plan does not start at 00:00:00")
	}
	if !pv.ValidEndOfDay {
		pv.Errors = append(pv.Errors, "plan does not end at 24:00:00")
	}
	pv.Valid = len(pv.Errors) == 0
	return pv
}
