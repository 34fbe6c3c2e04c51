package domain

import (
	"fmt"
	"maps"
	"time"

	"github.com/paulmach/orb/planar"
)

// Component is an element of a plan day: either an *Activity or a *Leg.
type Component interface {
	Start() time.Time
	End() time.Time
	SetStart(t time.Time)
	SetEnd(t time.Time)
	Duration() time.Duration
	ShiftStartTime(t time.Time) time.Time
	ShiftEndTime(t time.Time) time.Time
	ShiftDuration(d time.Duration, start *time.Time) time.Time
}

// Span is the time window shared by Activities and Legs.
type Span struct {
	StartTime time.Time
	EndTime   time.Time
}

func (s *Span) Start() time.Time        { return s.StartTime }
func (s *Span) End() time.Time          { return s.EndTime }
func (s *Span) SetStart(t time.Time)    { s.StartTime = t }
func (s *Span) SetEnd(t time.Time)      { s.EndTime = t }
func (s *Span) Duration() time.Duration { return s.EndTime.Sub(s.StartTime) }

// ShiftStartTime moves the span to start at t, keeping its duration.
// It returns the new end time.
func (s *Span) ShiftStartTime(t time.Time) time.Time {
	d := s.Duration()
	s.StartTime = t
	s.EndTime = t.Add(d)
	return s.EndTime
}

// ShiftEndTime moves the span to end at t, keeping its duration.
// It returns the new start time.
func (s *Span) ShiftEndTime(t time.Time) time.Time {
	d := s.Duration()
	s.EndTime = t
	s.StartTime = t.Add(-d)
	return s.StartTime
}

// ShiftDuration sets a new duration, optionally from a new start time.
// It returns the new end time.
func (s *Span) ShiftDuration(d time.Duration, start *time.Time) time.Time {
	if start != nil {
		s.StartTime = *start
	}
	s.EndTime = s.StartTime.Add(d)
	return s.EndTime
}

// Activity is a stay at one place with a purpose.
// Act is empty until a purpose is known or inferred.
type Activity struct {
	Seq      int
	Act      string
	Location Location
	Span
}

func NewActivity(seq int, act string, loc Location, start, end time.Time) *Activity {
	return &Activity{Seq: seq, Act: act, Location: loc, Span: Span{StartTime: start, EndTime: end}}
}

// Equal compares purpose and location, ignoring times.
func (a *Activity) Equal(other *Activity) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Act == other.Act && a.Location.Matches(other.Location)
}

// IsExact compares purpose, location and times.
func (a *Activity) IsExact(other *Activity) bool {
	return a.Equal(other) && a.StartTime.Equal(other.StartTime) && a.EndTime.Equal(other.EndTime)
}

// ValidateMatsim checks the fields a MATSim activity element requires.
func (a *Activity) ValidateMatsim() error {
	if a.Act == "" {
		return fmt.Errorf("%w: activity %d requires a type", ErrInvalidMatsim, a.Seq)
	}
	if a.StartTime.IsZero() && a.EndTime.IsZero() {
		return fmt.Errorf("%w: activity %d requires either start time or end time", ErrInvalidMatsim, a.Seq)
	}
	if a.Location.Point == nil && a.Location.Link == "" {
		return fmt.Errorf("%w: activity %d requires link id or x,y coordinates", ErrInvalidMatsim, a.Seq)
	}
	return nil
}

func (a *Activity) Copy() *Activity {
	out := *a
	out.Location = a.Location.Copy()
	return &out
}

func (a *Activity) String() string {
	return fmt.Sprintf("Activity(act:%s, location:%s, time:%s --> %s, duration:%s)",
		a.Act, a.Location, FormatTimeOfDay(a.StartTime), FormatTimeOfDay(a.EndTime), a.Duration())
}

// Leg is a trip between two Activities. Its boundary locations are copies of
// the neighbouring Activities' locations.
type Leg struct {
	Seq           int
	Mode          string
	Purp          string
	StartLocation Location
	EndLocation   Location
	Span
	Dist       *float64
	Route      Route
	Attributes map[string]string
}

func NewLeg(seq int, mode string, start, end time.Time) *Leg {
	return &Leg{Seq: seq, Mode: mode, Span: Span{StartTime: start, EndTime: end}}
}

func (l *Leg) Copy() *Leg {
	out := *l
	out.StartLocation = l.StartLocation.Copy()
	out.EndLocation = l.EndLocation.Copy()
	if l.Dist != nil {
		d := *l.Dist
		out.Dist = &d
	}
	out.Route = l.Route.Copy()
	out.Attributes = maps.Clone(l.Attributes)
	return &out
}

// Distance returns the explicit distance, else the straight-line distance
// between the endpoint coordinates (0 if either is missing).
func (l *Leg) Distance() float64 {
	if l.Dist != nil {
		return *l.Dist
	}
	if l.StartLocation.Point == nil || l.EndLocation.Point == nil {
		return 0
	}
	return planar.Distance(*l.StartLocation.Point, *l.EndLocation.Point)
}

// Equal compares endpoints, mode and times.
func (l *Leg) Equal(other *Leg) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.StartLocation.Matches(other.StartLocation) &&
		l.EndLocation.Matches(other.EndLocation) &&
		l.Mode == other.Mode &&
		l.StartTime.Equal(other.StartTime) &&
		l.EndTime.Equal(other.EndTime)
}

func (l *Leg) String() string {
	return fmt.Sprintf("Leg(mode:%s, area:%s --> %s, time:%s --> %s, duration:%s)",
		l.Mode, l.StartLocation, l.EndLocation, FormatTimeOfDay(l.StartTime), FormatTimeOfDay(l.EndTime), l.Duration())
}

// Transit accessors mirror the route's transit fields.
func (l *Leg) ServiceID() string { return l.Route.Transit.ServiceID }
func (l *Leg) RouteID() string   { return l.Route.Transit.RouteID }
func (l *Leg) OStop() string     { return l.Route.Transit.OriginStop }
func (l *Leg) DStop() string     { return l.Route.Transit.DestinationStop }

func (l *Leg) BoardingTime() *time.Time { return l.Route.Transit.BoardingTime }

func (l *Leg) NetworkRoute() []string { return l.Route.NetworkRoute() }
