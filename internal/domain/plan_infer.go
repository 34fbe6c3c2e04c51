package domain

import (
	"slices"
	"strings"
	"time"
)

// ClosedDuration returns the duration of the component at idx. For a closed
// plan the first and last activities are one stay that wraps midnight, so
// either index reports their combined duration.
func (p *Plan) ClosedDuration(idx int) time.Duration {
	if p.Closed() && (idx == 0 || idx == len(p.Day)-1) {
		return p.Day[0].Duration() + p.Day[len(p.Day)-1].Duration()
	}
	return p.Day[idx].Duration()
}

// InferActivityIdxs returns the day indices of activities located at target.
//
// When a leg both starts and ends at target, only the longer of the two
// activities either side of it is kept. If nothing matches and def is set,
// the first activity (and the last, for a closed plan) is returned instead.
func (p *Plan) InferActivityIdxs(target Location, def bool) map[int]struct{} {
	exclude := make(map[int]struct{})
	n := 0
	for leg := range p.Legs() {
		prev, next := 2*n, 2*n+2
		n++
		if next >= len(p.Day) {
			continue
		}
		if !leg.StartLocation.Matches(target) || !leg.EndLocation.Matches(target) {
			continue
		}
		if p.ClosedDuration(prev) > p.ClosedDuration(next) {
			exclude[next] = struct{}{}
		} else {
			exclude[prev] = struct{}{}
		}
	}

	candidates := make(map[int]struct{})
	for i, c := range p.Day {
		a, ok := c.(*Activity)
		if !ok || !a.Location.Matches(target) {
			continue
		}
		if _, skip := exclude[i]; !skip {
			candidates[i] = struct{}{}
		}
	}

	if def && len(candidates) == 0 && len(p.Day) > 0 {
		candidates[0] = struct{}{}
		if p.Closed() {
			candidates[len(p.Day)-1] = struct{}{}
		}
	}
	return candidates
}

// purposeMemo remembers the activity type first inferred at each location,
// in insertion order.
type purposeMemo struct {
	locs []Location
	acts []string
}

func (m *purposeMemo) lookup(loc Location) (string, bool) {
	for i, l := range m.locs {
		if l.Matches(loc) {
			return m.acts[i], true
		}
	}
	return "", false
}

func (m *purposeMemo) store(loc Location, act string) {
	for i, l := range m.locs {
		if l.Matches(loc) {
			m.acts[i] = act
			return
		}
	}
	m.locs = append(m.locs, loc)
	m.acts = append(m.acts, act)
}

// InferActivitiesFromTourPurpose labels untyped activities from the purposes
// of the legs that reach them.
//
// Home activities are found first. Labels then propagate forward from each
// home along leg purposes, are copied to other activities at already
// labelled locations, and finally propagate backward over anything left.
// A purpose that repeats the previous label is replaced by the label already
// known for the destination, so repeated trips to one place keep one label.
func (p *Plan) InferActivitiesFromTourPurpose() {
	if len(p.Day) == 0 {
		return
	}

	homes := sortedKeys(p.InferActivityIdxs(p.Home(), true))
	for _, idx := range homes {
		p.Day[idx].(*Activity).Act = "home"
	}

	remaining := make(map[int]struct{})
	for i := 0; i < len(p.Day); i += 2 {
		remaining[i] = struct{}{}
	}
	for _, idx := range homes {
		delete(remaining, idx)
	}

	var memo purposeMemo
	lastAct := ""
	label := func(idx int, purp string) {
		a := p.Day[idx].(*Activity)
		act := strings.ToLower(purp)
		if act == lastAct {
			if known, ok := memo.lookup(a.Location); ok {
				act = known
			}
		}
		a.Act = act
		delete(remaining, idx)
		lastAct = act
		memo.store(a.Location, act)
	}

	// forward from home
	var queue []int
	for _, idx := range homes {
		if idx+2 < len(p.Day) {
			queue = append(queue, idx+2)
		}
	}
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if p.Day[idx].(*Activity).Act != "" {
			continue
		}
		label(idx, p.Day[idx-1].(*Leg).Purp)
		if _, ok := remaining[idx+2]; ok {
			queue = append(queue, idx+2)
		}
	}

	// other visits to labelled locations
	queue = queue[:0]
	for i := 0; i < len(memo.locs); i++ {
		loc, act := memo.locs[i], memo.acts[i]
		for _, idx := range sortedKeys(p.InferActivityIdxs(loc, false)) {
			if _, ok := remaining[idx]; !ok {
				continue
			}
			p.Day[idx].(*Activity).Act = act
			delete(remaining, idx)
			if _, ok := remaining[idx+2]; ok {
				queue = append(queue, idx+2)
			}
		}
	}
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if p.Day[idx].(*Activity).Act != "" {
			continue
		}
		label(idx, p.Day[idx-1].(*Leg).Purp)
		if idx+2 < len(p.Day) {
			queue = append(queue, idx+2)
		}
	}

	// backward over whatever is left
	queue = sortedKeys(remaining)
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if p.Day[idx].(*Activity).Act != "" {
			continue
		}
		if leg, ok := p.legAt(idx + 1); ok {
			label(idx, leg.Purp)
		} else if leg, ok := p.legAt(idx - 1); ok {
			label(idx, leg.Purp)
		} else {
			continue
		}
		if idx-2 >= 0 {
			queue = append(queue, idx-2)
		}
	}
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
