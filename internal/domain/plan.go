package domain

import (
	"fmt"
	"iter"
	"log"
	"strings"
)

// Plan is one person's day: an alternating sequence of Activities and Legs
// that starts and ends with an Activity.
//
// A Plan is not safe for concurrent use. Edit operations index into Day and
// leave it transiently invalid while they run.
type Plan struct {
	HomeLocation Location
	Day          []Component
	Score        *float64
}

func NewPlan(home Location) *Plan {
	return &Plan{HomeLocation: home}
}

// Add appends components one at a time, enforcing Activity/Leg alternation.
func (p *Plan) Add(components ...Component) error {
	for _, c := range components {
		switch c.(type) {
		case *Activity:
			if len(p.Day) > 0 {
				if _, ok := p.Day[len(p.Day)-1].(*Activity); ok {
					return fmt.Errorf("%w: failed to add to plan, next component must be a Leg", ErrSequence)
				}
			}
		case *Leg:
			if len(p.Day) == 0 {
				return fmt.Errorf("%w: failed to add to plan, first component must be an Activity", ErrSequence)
			}
			if _, ok := p.Day[len(p.Day)-1].(*Activity); !ok {
				return fmt.Errorf("%w: failed to add to plan, next component must be an Activity", ErrSequence)
			}
		default:
			return fmt.Errorf("%w: cannot add %T to plan", ErrSequence, c)
		}
		p.Day = append(p.Day, c)
	}
	return nil
}

func (p *Plan) Len() int { return len(p.Day) }

// Get returns the component at idx; negative indices count from the end.
func (p *Plan) Get(idx int) (Component, bool) {
	if idx < 0 {
		idx += len(p.Day)
	}
	if idx < 0 || idx >= len(p.Day) {
		return nil, false
	}
	return p.Day[idx], true
}

func (p *Plan) activityAt(idx int) (*Activity, bool) {
	if idx < 0 || idx >= len(p.Day) {
		return nil, false
	}
	a, ok := p.Day[idx].(*Activity)
	return a, ok
}

func (p *Plan) legAt(idx int) (*Leg, bool) {
	if idx < 0 || idx >= len(p.Day) {
		return nil, false
	}
	l, ok := p.Day[idx].(*Leg)
	return l, ok
}

func (p *Plan) Activities() iter.Seq[*Activity] {
	return func(yield func(*Activity) bool) {
		for _, c := range p.Day {
			if a, ok := c.(*Activity); ok {
				if !yield(a) {
					return
				}
			}
		}
	}
}

func (p *Plan) Legs() iter.Seq[*Leg] {
	return func(yield func(*Leg) bool) {
		for _, c := range p.Day {
			if l, ok := c.(*Leg); ok {
				if !yield(l) {
					return
				}
			}
		}
	}
}

// Home returns the plan's home location: the explicit HomeLocation if set,
// else the location of the first "home..." activity, else the first activity.
func (p *Plan) Home() Location {
	if p.HomeLocation.Exists() {
		return p.HomeLocation
	}
	var first *Activity
	for a := range p.Activities() {
		if first == nil {
			first = a
		}
		if strings.HasPrefix(strings.ToLower(a.Act), "home") {
			return a.Location
		}
	}
	if first != nil {
		return first.Location
	}
	return Location{}
}

// Closed reports whether the first and last activities are the same place and purpose.
func (p *Plan) Closed() bool {
	first, ok1 := p.activityAt(0)
	last, ok2 := p.activityAt(len(p.Day) - 1)
	return ok1 && ok2 && first.Equal(last)
}

func (p *Plan) First() string {
	if a, ok := p.activityAt(0); ok {
		return a.Act
	}
	return ""
}

func (p *Plan) Last() string {
	if a, ok := p.activityAt(len(p.Day) - 1); ok {
		return a.Act
	}
	return ""
}

func (p *Plan) HomeBased() bool {
	return strings.ToLower(p.First()) == "home"
}

func (p *Plan) ActivityClasses() map[string]struct{} {
	out := make(map[string]struct{})
	for a := range p.Activities() {
		out[a.Act] = struct{}{}
	}
	return out
}

func (p *Plan) ModeClasses() map[string]struct{} {
	out := make(map[string]struct{})
	for l := range p.Legs() {
		out[l.Mode] = struct{}{}
	}
	return out
}

// ActivityTours splits the non-home activities into runs separated by home activities.
func (p *Plan) ActivityTours() [][]*Activity {
	var tours [][]*Activity
	var tour []*Activity
	for a := range p.Activities() {
		if a.Act == "home" {
			if len(tour) > 0 {
				tours = append(tours, tour)
			}
			tour = nil
			continue
		}
		tour = append(tour, a)
	}
	if len(tour) > 0 {
		tours = append(tours, tour)
	}
	return tours
}

// Search selects the first or last match in PositionOf.
type Search int

const (
	SearchLast Search = iota
	SearchFirst
)

// PositionOf returns the day index of the first or last activity of the
// target type (case-insensitive), or -1 if there is none.
func (p *Plan) PositionOf(target string, search Search) int {
	pos := -1
	for i, c := range p.Day {
		a, ok := c.(*Activity)
		if !ok || strings.ToLower(a.Act) != target {
			continue
		}
		if search == SearchFirst {
			return i
		}
		pos = i
	}
	return pos
}

// ValidSequence checks Activity/Leg alternation, starting and ending with an Activity.
func (p *Plan) ValidSequence() bool {
	if len(p.Day) == 0 {
		return false
	}
	for i, c := range p.Day {
		_, isAct := c.(*Activity)
		if (i%2 == 0) != isAct {
			return false
		}
	}
	_, ok := p.Day[len(p.Day)-1].(*Activity)
	return ok
}

func (p *Plan) ValidStartOfDayTime() bool {
	return len(p.Day) > 0 && p.Day[0].Start().Equal(StartOfDay)
}

func (p *Plan) ValidEndOfDayTime() bool {
	return len(p.Day) > 0 && p.Day[len(p.Day)-1].End().Equal(EndOfDay)
}

// ValidTimeSequence checks that every component starts when the previous one ends.
func (p *Plan) ValidTimeSequence() bool {
	for i := 0; i < len(p.Day)-1; i++ {
		if !p.Day[i].End().Equal(p.Day[i+1].Start()) {
			return false
		}
	}
	return true
}

// ValidLocations checks that leg boundaries match their neighbouring activities.
func (p *Plan) ValidLocations() bool {
	for i := 1; i < len(p.Day); i++ {
		switch c := p.Day[i].(type) {
		case *Activity:
			prev, ok := p.Day[i-1].(*Leg)
			if !ok || !c.Location.Matches(prev.EndLocation) {
				return false
			}
		case *Leg:
			prev, ok := p.Day[i-1].(*Activity)
			if !ok || !c.StartLocation.Matches(prev.Location) {
				return false
			}
		}
	}
	return true
}

// IsValid checks sequence, time and location consistency. Day bounds are
// checked separately with ValidStartOfDayTime and ValidEndOfDayTime.
func (p *Plan) IsValid() bool {
	return p.ValidSequence() && p.ValidTimeSequence() && p.ValidLocations()
}

func (p *Plan) ValidateSequence() error {
	if !p.ValidSequence() {
		return ErrSequence
	}
	return nil
}

func (p *Plan) ValidateTimes() error {
	if !p.ValidTimeSequence() {
		return fmt.Errorf("%w: plan activity and trip times are not consistent", ErrTimeConsistency)
	}
	return nil
}

func (p *Plan) ValidateLocations() error {
	if !p.ValidLocations() {
		return ErrLocationConsistency
	}
	return nil
}

func (p *Plan) Validate() error {
	if err := p.ValidateSequence(); err != nil {
		return err
	}
	if err := p.ValidateTimes(); err != nil {
		return err
	}
	return p.ValidateLocations()
}

// Equal compares plans component by component (activities by purpose and
// location, legs by endpoints, mode and times).
func (p *Plan) Equal(other *Plan) bool {
	if len(p.Day) != len(other.Day) {
		return false
	}
	for i := range p.Day {
		switch c := p.Day[i].(type) {
		case *Activity:
			o, ok := other.Day[i].(*Activity)
			if !ok || !c.Equal(o) {
				return false
			}
		case *Leg:
			o, ok := other.Day[i].(*Leg)
			if !ok || !c.Equal(o) {
				return false
			}
		}
	}
	return true
}

// Copy returns a deep copy that shares no components with p.
func (p *Plan) Copy() *Plan {
	out := &Plan{HomeLocation: p.HomeLocation.Copy(), Day: make([]Component, 0, len(p.Day))}
	if p.Score != nil {
		s := *p.Score
		out.Score = &s
	}
	for _, c := range p.Day {
		switch c := c.(type) {
		case *Activity:
			out.Day = append(out.Day, c.Copy())
		case *Leg:
			out.Day = append(out.Day, c.Copy())
		}
	}
	return out
}

func (p *Plan) Clear() {
	p.Day = nil
}

// Log writes one line per component.
func (p *Plan) Log() {
	for i, c := range p.Day {
		log.Printf("%d:\t%s", i, c)
	}
}
