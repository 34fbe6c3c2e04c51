package matsim

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"activity-plan-service/internal/domain"
)

const (
	routeTypeLinks   = "links"
	routeTypeGeneric = "generic"
	routeTypePT      = "default_pt"
	routeTypePTv11   = "experimentalPt1"

	ptv11Prefix    = "PT1"
	ptv11Separator = "==="
)

// transitJSON is the body of a v12 default_pt route.
type transitJSON struct {
	TransitRouteID   string `json:"transitRouteId"`
	BoardingTime     string `json:"boardingTime,omitempty"`
	TransitLineID    string `json:"transitLineId"`
	AccessFacilityID string `json:"accessFacilityId"`
	EgressFacilityID string `json:"egressFacilityId"`
}

// decodeRoute builds a domain Route from a raw route element. The version
// only changes how a transit route body is encoded.
func decodeRoute(v Version, x *xmlRoute) (domain.Route, error) {
	if x == nil {
		return domain.Route{}, nil
	}

	r := domain.Route{
		Type:         x.Type,
		StartLink:    x.StartLink,
		EndLink:      x.EndLink,
		VehicleRefID: x.VehicleRefID,
	}
	if x.Distance != nil {
		d, err := strconv.ParseFloat(strings.TrimSpace(*x.Distance), 64)
		if err != nil {
			return domain.Route{}, fmt.Errorf("%w: route distance %q", domain.ErrInvalidMatsim, *x.Distance)
		}
		r.Distance = &d
	}
	if x.TravTime != nil {
		tt, err := domain.ParseClock(*x.TravTime)
		if err != nil {
			return domain.Route{}, fmt.Errorf("%w: route trav_time: %v", domain.ErrInvalidMatsim, err)
		}
		r.TravTime = &tt
	}

	text := strings.TrimSpace(x.Text)
	switch {
	case v == V12 && x.Type == routeTypePT:
		r.Kind = domain.RouteTransit
		t, err := decodeTransitJSON(text)
		if err != nil {
			return domain.Route{}, err
		}
		r.Transit = t
	case v == V11 && x.Type == routeTypePTv11:
		r.Kind = domain.RouteTransit
		t, err := decodeTransitV11(text)
		if err != nil {
			return domain.Route{}, err
		}
		r.Transit = t
	case x.Type == routeTypeGeneric || text == "":
		r.Kind = domain.RouteTeleported
	default:
		r.Kind = domain.RouteNetwork
		r.Links = strings.Fields(text)
	}
	return r, nil
}

func decodeTransitJSON(text string) (domain.TransitRoute, error) {
	var body transitJSON
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return domain.TransitRoute{}, fmt.Errorf("%w: transit route body: %v", domain.ErrInvalidMatsim, err)
	}
	t := domain.TransitRoute{
		ServiceID:       body.TransitLineID,
		RouteID:         body.TransitRouteID,
		OriginStop:      body.AccessFacilityID,
		DestinationStop: body.EgressFacilityID,
	}
	if body.BoardingTime != "" {
		bt, err := domain.ParseTimeOfDay(body.BoardingTime)
		if err != nil {
			log.Printf("matsim: ignoring boarding time %q: %v", body.BoardingTime, err)
		} else {
			t.BoardingTime = &bt
		}
	}
	return t, nil
}

// decodeTransitV11 reads PT1===access===line===route===egress. The PT1
// prefix is optional.
func decodeTransitV11(text string) (domain.TransitRoute, error) {
	fields := strings.Split(text, ptv11Separator)
	if len(fields) == 5 {
		fields = fields[1:]
	}
	if len(fields) != 4 {
		return domain.TransitRoute{}, fmt.Errorf("%w: transit route %q has %d fields", domain.ErrInvalidMatsim, text, len(fields))
	}
	return domain.TransitRoute{
		OriginStop:      fields[0],
		ServiceID:       fields[1],
		RouteID:         fields[2],
		DestinationStop: fields[3],
	}, nil
}

// encodeRoute is the inverse of decodeRoute. It returns nil for a route
// with nothing to write.
func encodeRoute(v Version, r domain.Route) (*xmlRoute, error) {
	if !r.Exists() {
		return nil, nil
	}

	x := &xmlRoute{
		Type:         r.Type,
		StartLink:    r.StartLink,
		EndLink:      r.EndLink,
		VehicleRefID: r.VehicleRefID,
	}
	if r.TravTime != nil {
		s := domain.FormatClock(*r.TravTime)
		x.TravTime = &s
	}
	if r.Distance != nil {
		s := strconv.FormatFloat(*r.Distance, 'f', -1, 64)
		x.Distance = &s
	}

	switch r.Kind {
	case domain.RouteTransit:
		if v == V11 {
			x.Type = routeTypePTv11
			x.Text = strings.Join([]string{
				ptv11Prefix,
				r.Transit.OriginStop,
				r.Transit.ServiceID,
				r.Transit.RouteID,
				r.Transit.DestinationStop,
			}, ptv11Separator)
			break
		}
		x.Type = routeTypePT
		body := transitJSON{
			TransitRouteID:   r.Transit.RouteID,
			TransitLineID:    r.Transit.ServiceID,
			AccessFacilityID: r.Transit.OriginStop,
			EgressFacilityID: r.Transit.DestinationStop,
		}
		if r.Transit.BoardingTime != nil {
			body.BoardingTime = domain.FormatTimeOfDay(*r.Transit.BoardingTime)
		}
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode transit route: %w", err)
		}
		x.Text = string(b)
	case domain.RouteNetwork:
		if x.Type == "" {
			x.Type = routeTypeLinks
		}
		x.Text = strings.Join(r.Links, " ")
	case domain.RouteTeleported:
		if x.Type == "" {
			x.Type = routeTypeGeneric
		}
	}
	return x, nil
}

func formatClockPtr(d time.Duration) *string {
	s := domain.FormatClock(d)
	return &s
}
