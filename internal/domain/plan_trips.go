package domain

import "time"

// PTInteraction is the MATSim activity type marking a transfer inside a transit trip.
const PTInteraction = "pt interaction"

// DefaultTripIgnore lists the transfer activity types removed by Tripify.
var DefaultTripIgnore = []string{"pt interaction", "pt_interaction"}

func IsPTInteraction(act string) bool {
	return act == "pt interaction" || act == "pt_interaction"
}

func ignored(act string, ignore []string) bool {
	for _, i := range ignore {
		if act == i {
			return true
		}
	}
	return false
}

// modeTally accumulates distance per mode in first-seen order.
type modeTally struct {
	order []string
	dist  map[string]float64
}

func (m *modeTally) add(mode string, d float64) {
	if m.dist == nil {
		m.dist = make(map[string]float64)
	}
	if _, ok := m.dist[mode]; !ok {
		m.order = append(m.order, mode)
	}
	m.dist[mode] += d
}

func (m *modeTally) empty() bool { return len(m.order) == 0 }

// dominant returns the mode with the largest total distance; ties go to the
// mode seen first.
func (m *modeTally) dominant() string {
	best := ""
	for _, mode := range m.order {
		if best == "" || m.dist[mode] > m.dist[best] {
			best = mode
		}
	}
	return best
}

// Tripify returns the day with transfer activities removed and each
// multi-leg trip collapsed into a single leg. The new leg's mode is the one
// with the largest cumulative distance; its times, distance and boundaries
// span the whole trip and its purpose is the destination activity's type.
// Attributes are taken from the trip's last leg.
func (p *Plan) Tripify(ignore []string) []Component {
	if len(p.Day) == 0 {
		return nil
	}
	if ignore == nil {
		ignore = DefaultTripIgnore
	}

	var out []Component
	seq := 0
	var modes modeTally
	var attributes map[string]string
	startLocation := p.Day[0].(*Activity).Location
	startTime := p.Day[0].End()
	distance := 0.0

	for _, c := range p.Day {
		switch comp := c.(type) {
		case *Leg:
			d := comp.Distance()
			modes.add(comp.Mode, d)
			distance += d
			attributes = comp.Attributes
		case *Activity:
			if ignored(comp.Act, ignore) {
				continue
			}
			if !modes.empty() {
				dist := distance
				out = append(out, &Leg{
					Seq:           seq,
					Mode:          modes.dominant(),
					Purp:          comp.Act,
					StartLocation: startLocation.Copy(),
					EndLocation:   comp.Location.Copy(),
					Span:          Span{StartTime: startTime, EndTime: comp.StartTime},
					Dist:          &dist,
					Attributes:    attributes,
				})
			}
			out = append(out, comp)
			modes = modeTally{}
			startLocation = comp.Location
			startTime = comp.EndTime
			distance = 0
			seq++
		}
	}
	return out
}

// SimplifyPTTrips applies Tripify in place when the plan contains any ignored activity type.
func (p *Plan) SimplifyPTTrips(ignore []string) {
	if ignore == nil {
		ignore = DefaultTripIgnore
	}
	for a := range p.Activities() {
		if ignored(a.Act, ignore) {
			p.Day = p.Tripify(ignore)
			return
		}
	}
}

// Trip is a door-to-door journey between two non-transfer activities.
type Trip struct {
	Seq           int
	Mode          string
	Purp          string
	StartLocation Location
	EndLocation   Location
	StartTime     time.Time
	EndTime       time.Time
	Distance      float64
	Legs          []*Leg
}

// Trips groups legs into trips separated by non-transfer activities.
func (p *Plan) Trips(ignore []string) []Trip {
	if ignore == nil {
		ignore = DefaultTripIgnore
	}
	if len(p.Day) == 0 {
		return nil
	}

	var trips []Trip
	var modes modeTally
	var legs []*Leg
	start := p.Day[0].(*Activity)
	startLocation, startTime := start.Location, start.EndTime
	distance := 0.0

	for _, c := range p.Day[1:] {
		switch comp := c.(type) {
		case *Leg:
			d := comp.Distance()
			modes.add(comp.Mode, d)
			distance += d
			legs = append(legs, comp)
		case *Activity:
			if ignored(comp.Act, ignore) {
				continue
			}
			trips = append(trips, Trip{
				Seq:           len(trips),
				Mode:          modes.dominant(),
				Purp:          comp.Act,
				StartLocation: startLocation,
				EndLocation:   comp.Location,
				StartTime:     startTime,
				EndTime:       comp.StartTime,
				Distance:      distance,
				Legs:          legs,
			})
			modes = modeTally{}
			legs = nil
			startLocation, startTime = comp.Location, comp.EndTime
			distance = 0
		}
	}
	return trips
}
