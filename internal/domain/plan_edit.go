package domain

import (
	"fmt"
	"log"
)

// NoActivity marks a missing neighbour in the indices returned by RemoveActivity.
const NoActivity = -1

// RemoveActivity removes the activity at seq, leaving its legs in place, and
// returns the post-removal indices of the surviving activities either side
// of the gap. FillPlan uses them to repair the day.
//
// Removing the first or last activity of a closed plan removes both ends of
// the wrapped stay; the returned indices then describe the new wrap, with
// prev > next.
func (p *Plan) RemoveActivity(seq int) (prev, next int, err error) {
	a, ok := p.activityAt(seq)
	if !ok {
		return NoActivity, NoActivity, fmt.Errorf("%w: remove activity: index %d is not an activity", ErrSequence, seq)
	}
	last := len(p.Day) - 1

	switch {
	case seq == 0 && seq == last:
		log.Printf("remove activity: idx=%d act=%s plan now empty", seq, a.Act)
		p.Day = p.Day[:0]
		return NoActivity, NoActivity, nil

	case (seq == 0 || seq == last) && p.Closed():
		log.Printf("remove activity: idx=%d act=%s wraps", seq, a.Act)
		p.Day = p.Day[1:last]
		if len(p.Day) == 1 {
			return NoActivity, NoActivity, nil
		}
		return len(p.Day) - 2, 1, nil

	case seq == 0:
		log.Printf("remove activity: idx=%d act=%s first activity", seq, a.Act)
		p.Day = p.Day[1:]
		return NoActivity, 1, nil

	case seq == last:
		log.Printf("remove activity: idx=%d act=%s last activity", seq, a.Act)
		p.Day = p.Day[:last]
		return len(p.Day) - 2, NoActivity, nil
	}

	log.Printf("remove activity: idx=%d act=%s", seq, a.Act)
	p.Day = append(p.Day[:seq], p.Day[seq+1:]...)
	return seq - 2, seq + 1, nil
}

// FillPlan closes the gap RemoveActivity left between the activities at
// prev and next, restoring a valid day.
func (p *Plan) FillPlan(prev, next int) error {
	log.Printf("fill plan: %d -> %d", prev, next)

	switch {
	case prev == NoActivity && next == NoActivity:
		p.StayAtHome()
		return nil

	case prev == NoActivity:
		// start of day, not wrapping
		p.Day = p.Day[1:]
		p.Expand(next - 1)
		return nil

	case next == NoActivity:
		// end of day, not wrapping
		p.Day = p.Day[:len(p.Day)-1]
		p.Expand(prev)
		return nil

	case prev == next:
		if p.PositionOf("home", SearchLast) < 0 {
			return fmt.Errorf("fill plan: %w", ErrNoHomeActivity)
		}
		p.StayAtHome()
		return nil
	}

	start, ok1 := p.activityAt(prev)
	end, ok2 := p.activityAt(next)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: fill plan: indices %d, %d are not activities", ErrSequence, prev, next)
	}

	if start.Equal(end) {
		if next < prev {
			p.CombineWrappedActivities(prev, next)
			return nil
		}
		p.CombineMatchingActivities(prev, next)
		return nil
	}

	if next < prev {
		// wrapped: drop the dangling legs at either end
		p.Day = p.Day[1 : len(p.Day)-1]
		pivot := p.PositionOf("home", SearchLast)
		if pivot < 0 {
			log.Printf("fill plan: no home activity, changing plan to stay at home")
			p.StayAtHome()
			return nil
		}
		p.Expand(pivot)
		return nil
	}

	p.JoinActivities(prev, next)
	return nil
}

// Expand pushes the pivot and everything before it to the start of the day
// and everything after it to the end of the day, keeping each component's
// duration, then stretches the pivot over the freed time.
func (p *Plan) Expand(pivot int) {
	t := StartOfDay
	for i := 0; i <= pivot; i++ {
		t = p.Day[i].ShiftStartTime(t)
	}
	t = EndOfDay
	for i := len(p.Day) - 1; i > pivot; i-- {
		t = p.Day[i].ShiftEndTime(t)
	}
	p.Day[pivot].SetEnd(t)
}

// JoinActivities replaces the two legs around a removed activity with one
// leg from the activity at start to the activity at end, then expands the
// day around home.
func (p *Plan) JoinActivities(start, end int) {
	first := p.Day[start+1].(*Leg)
	second := p.Day[end-1].(*Leg)
	first.EndLocation = second.EndLocation.Copy()
	first.Purp = second.Purp
	p.Day = append(p.Day[:end-1], p.Day[end:]...)

	pivot := p.PositionOf("home", SearchLast)
	if pivot < 0 {
		log.Printf("join activities: no home activity, changing plan to stay at home")
		p.StayAtHome()
		return
	}
	p.Expand(pivot)
}

// CombineMatchingActivities merges the activity at end into the one at start
// and drops the legs between them.
func (p *Plan) CombineMatchingActivities(start, end int) {
	p.Day[start].SetEnd(p.Day[end].End())
	p.Day = append(p.Day[:start+1], p.Day[end+1:]...)
}

// CombineWrappedActivities joins the last activity (at start) and the first
// activity (at end) into one stay across midnight, dropping the boundary legs.
func (p *Plan) CombineWrappedActivities(start, end int) {
	p.Day[start].SetEnd(EndOfDay)
	p.Day[end].SetStart(StartOfDay)
	p.Day = append(p.Day[:start+1], p.Day[start+2:]...)
	p.Day = append(p.Day[:end-1], p.Day[end:]...)
}

// StayAtHome replaces the day with a single home activity.
func (p *Plan) StayAtHome() {
	home := p.Home()
	log.Printf("stay at home: location=%s", home)
	p.Day = []Component{NewActivity(1, "home", home.Copy(), StartOfDay, EndOfDay)}
}

// MoveActivity relocates the activity at seq and its adjoining leg
// boundaries, shifting those legs (and their tours) to mode. A nil loc
// moves the activity home.
func (p *Plan) MoveActivity(seq int, loc *Location, mode string) error {
	a, ok := p.activityAt(seq)
	if !ok {
		return fmt.Errorf("%w: move activity: index %d is not an activity", ErrSequence, seq)
	}
	target := p.Home()
	if loc != nil {
		target = *loc
	}

	a.Location = target.Copy()
	if leg, ok := p.legAt(seq - 1); ok {
		leg.EndLocation = target.Copy()
		if err := p.ModeShift(seq-1, mode, DefaultModeSpeeds, false); err != nil {
			return fmt.Errorf("move activity: %w", err)
		}
	}
	if leg, ok := p.legAt(seq + 1); ok {
		leg.StartLocation = target.Copy()
		if err := p.ModeShift(seq+1, mode, DefaultModeSpeeds, false); err != nil {
			return fmt.Errorf("move activity: %w", err)
		}
	}
	return nil
}
