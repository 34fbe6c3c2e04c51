package domain

import "log"

// Crop truncates the plan to EndOfDay. Components starting after the end of
// the day are dropped, the plan is cut at the first out-of-order component,
// and the last activity is stretched (or a trailing leg removed) so the day
// ends exactly at EndOfDay. Locations are not touched.
func (p *Plan) Crop() {
	p.dropAfterEndOfDay()

	for idx := 1; idx < len(p.Day); idx++ {
		if p.Day[idx].Start().Before(p.Day[idx-1].End()) {
			log.Printf("crop: out of sequence start idx=%d", idx)
			p.Day = p.Day[:idx]
			break
		}
		if p.Day[idx].Start().After(p.Day[idx].End()) {
			log.Printf("crop: negative duration idx=%d", idx)
			p.Day = p.Day[:idx+1]
			break
		}
	}

	// a cut can expose components that start after the end of day
	p.dropAfterEndOfDay()
	if len(p.Day) == 0 {
		return
	}
	if _, ok := p.Day[len(p.Day)-1].(*Leg); ok {
		p.Day = p.Day[:len(p.Day)-1]
		if len(p.Day) == 0 {
			return
		}
	}
	p.Day[len(p.Day)-1].SetEnd(EndOfDay)
}

func (p *Plan) dropAfterEndOfDay() {
	for idx := len(p.Day) - 1; idx >= 0; idx-- {
		if !p.Day[idx].Start().After(EndOfDay) {
			break
		}
		log.Printf("crop: drop components after end of day idx=%d", idx)
		p.Day = p.Day[:idx]
	}
}

// FixTimeConsistency starts every component when the previous one ends.
func (p *Plan) FixTimeConsistency() {
	for i := 0; i < len(p.Day)-1; i++ {
		p.Day[i+1].SetStart(p.Day[i].End())
	}
}

// FixLocationConsistency copies neighbouring activity locations onto interior legs.
func (p *Plan) FixLocationConsistency() {
	for i := 1; i < len(p.Day)-1; i++ {
		leg, ok := p.Day[i].(*Leg)
		if !ok {
			continue
		}
		if prev, ok := p.Day[i-1].(*Activity); ok {
			leg.StartLocation = prev.Location.Copy()
		}
		if next, ok := p.Day[i+1].(*Activity); ok {
			leg.EndLocation = next.Location.Copy()
		}
	}
}

// Fix runs the selected repairs in order: crop, times, locations.
func (p *Plan) Fix(crop, times, locations bool) {
	if crop {
		p.Crop()
	}
	if times {
		p.FixTimeConsistency()
	}
	if locations {
		p.FixLocationConsistency()
	}
}

// FinaliseActivityEndTimes ends each activity when the following leg starts,
// and the last activity at EndOfDay.
func (p *Plan) FinaliseActivityEndTimes() {
	if len(p.Day) == 0 {
		return
	}
	for i := 0; i < len(p.Day)-1; i += 2 {
		p.Day[i].SetEnd(p.Day[i+1].Start())
	}
	p.Day[len(p.Day)-1].SetEnd(EndOfDay)
}

// Autocomplete copies each activity's location into the boundaries of its adjoining legs.
func (p *Plan) Autocomplete() {
	for i, c := range p.Day {
		leg, ok := c.(*Leg)
		if !ok {
			continue
		}
		if prev, ok := p.activityAt(i - 1); ok {
			leg.StartLocation = prev.Location.Copy()
		}
		if next, ok := p.activityAt(i + 1); ok {
			leg.EndLocation = next.Location.Copy()
		}
	}
}

// SetLegPurposes sets each leg's purpose to the type of the next activity
// that is not a pt interaction.
func (p *Plan) SetLegPurposes() {
	for i, c := range p.Day {
		leg, ok := c.(*Leg)
		if !ok {
			continue
		}
		for j := i + 1; j < len(p.Day); j += 2 {
			a, ok := p.Day[j].(*Activity)
			if !ok {
				break
			}
			if !IsPTInteraction(a.Act) {
				leg.Purp = a.Act
				break
			}
		}
	}
}
