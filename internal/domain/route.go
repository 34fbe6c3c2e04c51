package domain

import "time"

// RouteKind describes how a Leg was moved.
type RouteKind int

const (
	RouteNone RouteKind = iota
	RouteTeleported
	RouteNetwork
	RouteTransit
)

func (k RouteKind) String() string {
	switch k {
	case RouteTeleported:
		return "teleported"
	case RouteNetwork:
		return "network"
	case RouteTransit:
		return "transit"
	default:
		return "none"
	}
}

// TransitRoute holds the boarding details of a public transit leg.
type TransitRoute struct {
	ServiceID       string // transitLineId
	RouteID         string // transitRouteId
	OriginStop      string // accessFacilityId
	DestinationStop string // egressFacilityId
	BoardingTime    *time.Time
}

// Route is the routing result attached to a Leg. Type, StartLink, EndLink,
// TravTime and VehicleRefID carry the raw MATSim route attributes so a
// decoded route can be written back unchanged.
type Route struct {
	Kind     RouteKind
	Links    []string
	Transit  TransitRoute
	Distance *float64

	Type         string
	StartLink    string
	EndLink      string
	TravTime     *time.Duration
	VehicleRefID string
}

// Exists reports whether the route carries anything worth writing.
func (r Route) Exists() bool {
	return r.Kind != RouteNone || r.Type != ""
}

func (r Route) IsTransit() bool    { return r.Kind == RouteTransit }
func (r Route) IsRouted() bool     { return r.Kind == RouteNetwork }
func (r Route) IsTeleported() bool { return r.Kind == RouteTeleported }

// NetworkRoute returns the ordered link ids, or nil for non-network routes.
func (r Route) NetworkRoute() []string {
	if r.Kind != RouteNetwork {
		return nil
	}
	return r.Links
}

// Copy returns a Route that shares no memory with r.
func (r Route) Copy() Route {
	out := r
	if r.Links != nil {
		out.Links = append([]string(nil), r.Links...)
	}
	if r.Distance != nil {
		d := *r.Distance
		out.Distance = &d
	}
	if r.TravTime != nil {
		tt := *r.TravTime
		out.TravTime = &tt
	}
	if r.Transit.BoardingTime != nil {
		bt := *r.Transit.BoardingTime
		out.Transit.BoardingTime = &bt
	}
	return out
}
