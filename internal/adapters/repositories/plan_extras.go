package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"activity-plan-service/internal/domain"
)

// planExtras holds the plan fields a MATSim <plan> fragment has no room for.
// Component maps are keyed by day index.
type planExtras struct {
	Home      *storedLocation `json:"home,omitempty"`
	Areas     map[int]string  `json:"areas,omitempty"`
	Distances map[int]float64 `json:"distances,omitempty"`
}

type storedLocation struct {
	Point *[2]float64 `json:"point,omitempty"`
	Link  string      `json:"link,omitempty"`
	Area  string      `json:"area,omitempty"`
}

func marshalPlanExtras(plan *domain.Plan) ([]byte, error) {
	var x planExtras
	if home := plan.HomeLocation; home.Exists() {
		x.Home = &storedLocation{Link: home.Link, Area: home.Area}
		if home.Point != nil {
			x.Home.Point = &[2]float64{home.Point[0], home.Point[1]}
		}
	}

	for i, c := range plan.Day {
		switch c := c.(type) {
		case *domain.Activity:
			if c.Location.Area != "" {
				if x.Areas == nil {
					x.Areas = make(map[int]string)
				}
				x.Areas[i] = c.Location.Area
			}
		case *domain.Leg:
			// route distances travel with the fragment
			if c.Dist != nil && c.Route.Distance == nil {
				if x.Distances == nil {
					x.Distances = make(map[int]float64)
				}
				x.Distances[i] = *c.Dist
			}
		}
	}

	b, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("marshal plan extras: %w", err)
	}
	return b, nil
}

func applyPlanExtras(plan *domain.Plan, data string) error {
	if data == "" {
		return nil
	}
	var x planExtras
	if err := json.Unmarshal([]byte(data), &x); err != nil {
		return fmt.Errorf("unmarshal plan extras: %w", err)
	}

	if x.Home != nil {
		plan.HomeLocation = domain.Location{Link: x.Home.Link, Area: x.Home.Area}
		if x.Home.Point != nil {
			plan.HomeLocation.Point = &orb.Point{x.Home.Point[0], x.Home.Point[1]}
		}
	}
	for i, area := range x.Areas {
		if a, ok := componentAt[*domain.Activity](plan, i); ok {
			a.Location.Area = area
		}
	}
	for i, d := range x.Distances {
		if l, ok := componentAt[*domain.Leg](plan, i); ok {
			l.Dist = &d
		}
	}
	if len(x.Areas) > 0 {
		plan.Autocomplete()
	}
	return nil
}

func componentAt[T domain.Component](plan *domain.Plan, idx int) (T, bool) {
	var zero T
	if idx < 0 || idx >= len(plan.Day) {
		return zero, false
	}
	c, ok := plan.Day[idx].(T)
	return c, ok
}
