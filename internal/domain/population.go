package domain

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
)

// PersonVehicles maps a mode to the vehicle id a person uses for it.
type PersonVehicles map[string]string

// Person owns one selected Plan and any unselected alternatives.
// Attribute values are string, bool, int64, float64 or PersonVehicles.
type Person struct {
	PID         string
	Attributes  map[string]any
	Plan        *Plan
	NonSelected []*Plan
}

func NewPerson(pid string, attributes map[string]any, home Location) *Person {
	if attributes == nil {
		attributes = make(map[string]any)
	}
	return &Person{PID: pid, Attributes: attributes, Plan: NewPlan(home)}
}

// Attribute returns the attribute rendered as a string, or "" if unset.
func (p *Person) Attribute(key string) string {
	switch v := p.Attributes[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return formatAttribute(v)
	}
}

func formatAttribute(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (p *Person) HasValidPlan() bool {
	return p.Plan != nil && p.Plan.IsValid()
}

func (p *Person) Validate() error {
	return p.Plan.Validate()
}

// Household groups the people sharing a home.
type Household struct {
	HID        string
	Attributes map[string]any
	Location   Location

	order  []string
	people map[string]*Person
}

func NewHousehold(hid string, attributes map[string]any) *Household {
	if attributes == nil {
		attributes = make(map[string]any)
	}
	return &Household{HID: hid, Attributes: attributes, people: make(map[string]*Person)}
}

// Add inserts or replaces people by PID, keeping first-insertion order.
func (h *Household) Add(people ...*Person) {
	for _, p := range people {
		if _, ok := h.people[p.PID]; !ok {
			h.order = append(h.order, p.PID)
		}
		h.people[p.PID] = p
	}
}

func (h *Household) Get(pid string) (*Person, bool) {
	p, ok := h.people[pid]
	return p, ok
}

func (h *Household) Len() int { return len(h.order) }

func (h *Household) People() iter.Seq[*Person] {
	return func(yield func(*Person) bool) {
		for _, pid := range h.order {
			if !yield(h.people[pid]) {
				return
			}
		}
	}
}

// Population is an ordered collection of households.
type Population struct {
	Name string

	order      []string
	households map[string]*Household
}

func NewPopulation(name string) *Population {
	return &Population{Name: name, households: make(map[string]*Household)}
}

// Add inserts or replaces households by HID, keeping first-insertion order.
func (p *Population) Add(households ...*Household) {
	for _, h := range households {
		if _, ok := p.households[h.HID]; !ok {
			p.order = append(p.order, h.HID)
		}
		p.households[h.HID] = h
	}
}

// AddPerson adds a person to the household hid, creating it if needed.
// An empty hid puts the person in a household of their own.
func (p *Population) AddPerson(hid string, person *Person) {
	if hid == "" {
		hid = person.PID
	}
	h, ok := p.households[hid]
	if !ok {
		h = NewHousehold(hid, nil)
		p.Add(h)
	}
	h.Add(person)
}

func (p *Population) Get(hid string) (*Household, bool) {
	h, ok := p.households[hid]
	return h, ok
}

func (p *Population) NumHouseholds() int { return len(p.order) }

func (p *Population) Households() iter.Seq[*Household] {
	return func(yield func(*Household) bool) {
		for _, hid := range p.order {
			if !yield(p.households[hid]) {
				return
			}
		}
	}
}

// People yields every person with their household id.
func (p *Population) People() iter.Seq2[string, *Person] {
	return func(yield func(string, *Person) bool) {
		for h := range p.Households() {
			for person := range h.People() {
				if !yield(h.HID, person) {
					return
				}
			}
		}
	}
}

func (p *Population) Size() int {
	n := 0
	for h := range p.Households() {
		n += h.Len()
	}
	return n
}

// ActivityClasses returns the sorted activity types used across all plans.
func (p *Population) ActivityClasses() []string {
	acts := make(map[string]struct{})
	for _, person := range p.People() {
		maps.Copy(acts, person.Plan.ActivityClasses())
	}
	return slices.Sorted(maps.Keys(acts))
}

// ModeClasses returns the sorted leg modes used across all plans.
func (p *Population) ModeClasses() []string {
	modes := make(map[string]struct{})
	for _, person := range p.People() {
		maps.Copy(modes, person.Plan.ModeClasses())
	}
	return slices.Sorted(maps.Keys(modes))
}

// FixPlans runs Plan.Fix on every selected plan.
func (p *Population) FixPlans(crop, times, locations bool) {
	for _, person := range p.People() {
		person.Plan.Fix(crop, times, locations)
	}
}

// Validate returns the first plan validation failure.
func (p *Population) Validate() error {
	for _, person := range p.People() {
		if err := person.Validate(); err != nil {
			return fmt.Errorf("person %s: %w", person.PID, err)
		}
	}
	return nil
}
