package dto

import (
	"activity-plan-service/internal/domain"
)

type LocationResponse struct {
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Link string   `json:"link,omitempty"`
	Area string   `json:"area,omitempty"`
}

type TransitResponse struct {
	ServiceID       string `json:"service_id"`
	RouteID         string `json:"route_id"`
	OriginStop      string `json:"origin_stop"`
	DestinationStop string `json:"destination_stop"`
	BoardingTime    string `json:"boarding_time,omitempty"`
}

type RouteResponse struct {
	Kind     string           `json:"kind"`
	Links    []string         `json:"links,omitempty"`
	Transit  *TransitResponse `json:"transit,omitempty"`
	Distance *float64         `json:"distance,omitempty"`
}

// ComponentResponse is either an activity or a leg; Type tells which.
type ComponentResponse struct {
	Index     int    `json:"index"`
	Type      string `json:"type"`
	Seq       int    `json:"seq"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  string `json:"duration"`

	Act      string            `json:"act,omitempty"`
	Location *LocationResponse `json:"location,omitempty"`

	Mode     string            `json:"mode,omitempty"`
	Purpose  string            `json:"purpose,omitempty"`
	From     *LocationResponse `json:"from,omitempty"`
	To       *LocationResponse `json:"to,omitempty"`
	Distance *float64          `json:"distance,omitempty"`
	Route    *RouteResponse    `json:"route,omitempty"`
}

type PlanResponse struct {
	Score      *float64            `json:"score,omitempty"`
	Valid      bool                `json:"valid"`
	Closed     bool                `json:"closed"`
	Components []ComponentResponse `json:"components"`
}

func NewLocation(l domain.Location) *LocationResponse {
	if !l.Exists() {
		return nil
	}
	out := &LocationResponse{Link: l.Link, Area: l.Area}
	if x, ok := l.X(); ok {
		y, _ := l.Y()
		out.X, out.Y = &x, &y
	}
	return out
}

func newRoute(r domain.Route) *RouteResponse {
	if !r.Exists() {
		return nil
	}
	out := &RouteResponse{Kind: r.Kind.String(), Distance: r.Distance}
	switch r.Kind {
	case domain.RouteNetwork:
		out.Links = r.Links
	case domain.RouteTransit:
		t := &TransitResponse{
			ServiceID:       r.Transit.ServiceID,
			RouteID:         r.Transit.RouteID,
			OriginStop:      r.Transit.OriginStop,
			DestinationStop: r.Transit.DestinationStop,
		}
		if r.Transit.BoardingTime != nil {
			t.BoardingTime = domain.FormatTimeOfDay(*r.Transit.BoardingTime)
		}
		out.Transit = t
	}
	return out
}

func NewPlan(p *domain.Plan) PlanResponse {
	res := PlanResponse{
		Score:      p.Score,
		Valid:      p.IsValid(),
		Closed:     p.Closed(),
		Components: make([]ComponentResponse, 0, len(p.Day)),
	}
	for i, c := range p.Day {
		cr := ComponentResponse{
			Index:     i,
			StartTime: domain.FormatTimeOfDay(c.Start()),
			EndTime:   domain.FormatTimeOfDay(c.End()),
			Duration:  domain.FormatClock(c.Duration()),
		}
		switch c := c.(type) {
		case *domain.Activity:
			cr.Type = "activity"
			cr.Seq = c.Seq
			cr.Act = c.Act
			cr.Location = NewLocation(c.Location)
		case *domain.Leg:
			cr.Type = "leg"
			cr.Seq = c.Seq
			cr.Mode = c.Mode
			cr.Purpose = c.Purp
			cr.From = NewLocation(c.StartLocation)
			cr.To = NewLocation(c.EndLocation)
			d := c.Distance()
			cr.Distance = &d
			cr.Route = newRoute(c.Route)
		}
		res.Components = append(res.Components, cr)
	}
	return res
}

type ModeShiftRequest struct {
	Seq            *int   `json:"seq"`
	Mode           string `json:"mode"`
	UpdateDuration bool   `json:"update_duration"`
}
