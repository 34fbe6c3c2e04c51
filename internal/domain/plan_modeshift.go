package domain

import (
	"fmt"
	"math"
	"time"
)

// ModeSpeeds maps a travel mode to its average speed in km/h.
type ModeSpeeds map[string]float64

// DefaultModeSpeeds are average speeds by mode from the National Travel Survey (NTS0303).
var DefaultModeSpeeds = ModeSpeeds{
	"car":   37,
	"bus":   10,
	"walk":  4,
	"cycle": 14,
	"pt":    23,
	"rail":  37,
}

// LegTour returns the activity tour containing either end of the leg at seq,
// or nil if neither end is part of a tour.
func (p *Plan) LegTour(seq int) ([]*Activity, error) {
	if _, ok := p.legAt(seq); !ok {
		return nil, fmt.Errorf("%w: leg tour: index %d is not a leg", ErrSequence, seq)
	}
	from, _ := p.activityAt(seq - 1)
	to, _ := p.activityAt(seq + 1)
	for _, tour := range p.ActivityTours() {
		for _, a := range tour {
			if from.IsExact(a) || to.IsExact(a) {
				return tour, nil
			}
		}
	}
	return nil, nil
}

// ModeShift changes the mode of the leg at seq and of every other leg that
// touches the same tour. With updateDuration, each shifted leg is rescaled
// by the ratio of old to new mode speed and home activities absorb the
// difference so the day still ends at EndOfDay.
func (p *Plan) ModeShift(seq int, mode string, speeds ModeSpeeds, updateDuration bool) error {
	tour, err := p.LegTour(seq)
	if err != nil {
		return fmt.Errorf("mode shift: %w", err)
	}

	var shifted []int
	if tour == nil {
		shifted = []int{seq}
	}
	for i := 1; tour != nil && i < len(p.Day)-1; i += 2 {
		from, _ := p.activityAt(i - 1)
		to, _ := p.activityAt(i + 1)
		for _, a := range tour {
			if from.IsExact(a) || to.IsExact(a) {
				shifted = append(shifted, i)
				break
			}
		}
	}

	if updateDuration {
		if _, ok := speeds[mode]; !ok {
			return fmt.Errorf("mode shift: %w %q", ErrUnknownMode, mode)
		}
		for _, i := range shifted {
			if _, ok := speeds[p.Day[i].(*Leg).Mode]; !ok {
				return fmt.Errorf("mode shift: %w %q", ErrUnknownMode, p.Day[i].(*Leg).Mode)
			}
		}
	}

	for _, i := range shifted {
		leg := p.Day[i].(*Leg)
		if updateDuration {
			d := leg.Duration()
			delta := time.Duration(speeds[leg.Mode]/speeds[mode]*float64(d)) - d
			leg.Mode = mode
			p.ChangeDuration(i, delta)
			continue
		}
		leg.Mode = mode
	}

	if updateDuration {
		p.fitHomeActivities()
	}
	return nil
}

// fitHomeActivities scales home activities so the day ends at EndOfDay.
func (p *Plan) fitHomeActivities() {
	if len(p.Day) == 0 {
		return
	}
	homeDuration := p.HomeDuration()
	if homeDuration > 0 {
		factor := float64(p.Day[len(p.Day)-1].End().Sub(EndOfDay)) / float64(homeDuration)
		for i, c := range p.Day {
			a, ok := c.(*Activity)
			if !ok || a.Act != "home" {
				continue
			}
			secs := math.RoundToEven(-factor * a.Duration().Seconds())
			p.ChangeDuration(i, time.Duration(secs)*time.Second)
		}
	}
	// rounding drift
	p.Day[len(p.Day)-1].SetEnd(EndOfDay)
}

// ChangeDuration extends the component at seq by delta and moves every later component by the same amount.
func (p *Plan) ChangeDuration(seq int, delta time.Duration) {
	p.Day[seq].SetEnd(p.Day[seq].End().Add(delta))
	for i := seq + 1; i < len(p.Day); i++ {
		p.Day[i].ShiftStartTime(p.Day[i].Start().Add(delta))
	}
}

// HomeDuration is the total time spent in home activities.
func (p *Plan) HomeDuration() time.Duration {
	var d time.Duration
	for a := range p.Activities() {
		if a.Act == "home" {
			d += a.Duration()
		}
	}
	return d
}
