package matsim

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"activity-plan-service/internal/domain"
)

// ReadOptions controls how plans are parsed.
type ReadOptions struct {
	Version Version

	// collapse multi-leg transit trips into single legs
	SimplifyPTTrips bool
	// copy activity locations onto leg boundaries
	Autocomplete bool
	// crop plans to 24 hours
	Crop bool
	// also parse plans with selected="no"
	KeepNonSelected bool
	LegAttributes   bool
	LegRoute        bool

	// v11 person attributes keyed by person id, see LoadAttributesMap
	Attributes map[string]map[string]any
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Version:       V12,
		Autocomplete:  true,
		LegAttributes: true,
		LegRoute:      true,
	}
}

// Reader streams persons out of a MATSim population document.
type Reader struct {
	r    io.Reader
	opts ReadOptions
}

func NewReader(r io.Reader, opts ReadOptions) *Reader {
	return &Reader{r: r, opts: opts}
}

// Persons yields one person at a time in document order. Iteration stops
// after the first error.
func (r *Reader) Persons() iter.Seq2[*domain.Person, error] {
	return func(yield func(*domain.Person, error) bool) {
		if err := r.opts.Version.Validate(); err != nil {
			yield(nil, err)
			return
		}

		dec := xml.NewDecoder(r.r)
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read persons: %w", err))
				return
			}
			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "person" {
				continue
			}

			var x xmlPerson
			if err := dec.DecodeElement(&x, &start); err != nil {
				yield(nil, fmt.Errorf("read persons: %w", err))
				return
			}
			person, err := r.parsePerson(&x)
			if err != nil {
				yield(nil, fmt.Errorf("read person %s: %w", x.ID, err))
				return
			}
			if !yield(person, nil) {
				return
			}
		}
	}
}

func (r *Reader) parsePerson(x *xmlPerson) (*domain.Person, error) {
	var attrs map[string]any
	if r.opts.Version == V11 {
		attrs = r.opts.Attributes[x.ID]
	} else if x.Attributes != nil {
		var err error
		attrs, err = decodeAttributes(x.Attributes.Attributes)
		if err != nil {
			return nil, err
		}
	}

	person := domain.NewPerson(x.ID, attrs, domain.Location{})
	for i := range x.Plans {
		px := &x.Plans[i]
		switch {
		case px.Selected == "yes":
			plan, err := r.parsePlan(x.ID, px)
			if err != nil {
				return nil, err
			}
			person.Plan = plan
		case r.opts.KeepNonSelected && px.Selected == "no":
			plan, err := r.parsePlan(x.ID, px)
			if err != nil {
				return nil, err
			}
			person.NonSelected = append(person.NonSelected, plan)
		}
	}
	return person, nil
}

func (r *Reader) parsePlan(pid string, px *xmlPlan) (*domain.Plan, error) {
	plan := domain.NewPlan(domain.Location{})
	arrival := domain.StartOfDay
	var departure time.Time
	actSeq, legSeq := 0, 0

	for _, stage := range px.Stages {
		switch {
		case stage.Activity != nil:
			actSeq++
			a, err := r.parseActivity(actSeq, stage.Activity, arrival)
			if err != nil {
				return nil, err
			}
			departure = a.EndTime
			if departure.Before(arrival) {
				log.Printf("matsim: negative duration activity pid=%s seq=%d", pid, actSeq)
			}
			if err := plan.Add(a); err != nil {
				return nil, err
			}

		case stage.Leg != nil:
			legSeq++
			l, err := r.parseLeg(legSeq, stage.Leg, departure)
			if err != nil {
				return nil, err
			}
			arrival = l.EndTime
			if err := plan.Add(l); err != nil {
				return nil, err
			}
		}
	}

	if r.opts.SimplifyPTTrips {
		plan.SimplifyPTTrips(nil)
	}
	plan.SetLegPurposes()

	if px.Score != nil && *px.Score != "" {
		score, err := strconv.ParseFloat(*px.Score, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: score %q", domain.ErrInvalidMatsim, *px.Score)
		}
		plan.Score = &score
	}

	if r.opts.Crop {
		plan.Crop()
	}
	if r.opts.Autocomplete {
		plan.Autocomplete()
	}
	return plan, nil
}

func (r *Reader) parseActivity(seq int, x *xmlActivity, arrival time.Time) (*domain.Activity, error) {
	loc := domain.Location{Link: x.Link}
	if x.X != nil && x.Y != nil {
		px, errX := strconv.ParseFloat(strings.TrimSpace(*x.X), 64)
		py, errY := strconv.ParseFloat(strings.TrimSpace(*x.Y), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: activity %d coordinates %q,%q", domain.ErrInvalidMatsim, seq, *x.X, *x.Y)
		}
		loc.Point = &orb.Point{px, py}
	}

	var departure time.Time
	switch {
	case x.EndTime != nil:
		t, err := domain.ParseTimeOfDay(*x.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: activity %d end_time: %v", domain.ErrInvalidMatsim, seq, err)
		}
		departure = t
	case x.Type == domain.PTInteraction:
		departure = arrival
	default:
		departure = domain.EndOfDay
	}

	return domain.NewActivity(seq, x.Type, loc, arrival, departure), nil
}

func (r *Reader) parseLeg(seq int, x *xmlLeg, departure time.Time) (*domain.Leg, error) {
	arrival := departure
	if x.TravTime != nil {
		d, err := domain.ParseClock(*x.TravTime)
		if err != nil {
			return nil, fmt.Errorf("%w: leg %d trav_time: %v", domain.ErrInvalidMatsim, seq, err)
		}
		arrival = departure.Add(d)
	}

	l := domain.NewLeg(seq, x.Mode, departure, arrival)
	if r.opts.LegAttributes && r.opts.Version == V12 {
		l.Attributes = decodeLegAttributes(x.Attributes)
	}
	if !r.opts.LegRoute {
		return l, nil
	}

	route, err := decodeRoute(r.opts.Version, x.Route)
	if err != nil {
		return nil, fmt.Errorf("leg %d: %w", seq, err)
	}
	l.Route = route
	l.StartLocation.Link = route.StartLink
	l.EndLocation.Link = route.EndLink
	if route.Distance != nil {
		d := *route.Distance
		l.Dist = &d
	}
	return l, nil
}

// DecodePlan parses a single <plan> element, as produced by EncodePlan.
func DecodePlan(data []byte, v Version) (*domain.Plan, error) {
	var px xmlPlan
	if err := xml.Unmarshal(data, &px); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	opts := DefaultReadOptions()
	opts.Version = v
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return NewReader(nil, opts).parsePlan("", &px)
}

// Open opens a population file, transparently decompressing gzip content.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(2)
	if !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return struct {
			io.Reader
			io.Closer
		}{br, f}, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// ReadPopulation loads every person of a population file, grouping people
// into households by the householdKey attribute when it is set.
func ReadPopulation(path string, opts ReadOptions, householdKey string) (*domain.Population, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pop := domain.NewPopulation(path)
	for person, err := range NewReader(rc, opts).Persons() {
		if err != nil {
			return nil, err
		}
		pop.AddPerson(HouseholdID(person, householdKey), person)
	}
	return pop, nil
}

// HouseholdID returns the person's household attribute, or "" when the key
// is unset or the person has no such attribute.
func HouseholdID(p *domain.Person, householdKey string) string {
	if householdKey == "" {
		return ""
	}
	return p.Attribute(householdKey)
}
