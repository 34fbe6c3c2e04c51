package matsim

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"activity-plan-service/internal/domain"
)

func clock(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := domain.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return v
}

func commuterPlan(t *testing.T) *domain.Plan {
	t.Helper()
	home := domain.Location{Link: "1-2"}
	home.Point = domain.NewPointLocation(0, 0).Point
	work := domain.Location{Link: "3-4"}
	work.Point = domain.NewPointLocation(10000, 0).Point

	dist := 10100.0
	car := domain.NewLeg(1, "car", clock(t, "07:00:00"), clock(t, "07:30:00"))
	car.Route = domain.Route{
		Kind:      domain.RouteNetwork,
		StartLink: "1-2",
		EndLink:   "3-4",
		Distance:  &dist,
		Links:     []string{"1-2", "2-3", "3-4"},
	}
	car.Attributes = map[string]string{"routingMode": "car", "enterVehicleTime": "25200.0"}

	board := clock(t, "17:35:00")
	bus := domain.NewLeg(2, "bus", clock(t, "17:30:00"), clock(t, "18:00:00"))
	bus.Route = domain.Route{
		Kind:      domain.RouteTransit,
		StartLink: "3-4",
		EndLink:   "1-2",
		Transit: domain.TransitRoute{
			ServiceID:       "line_9",
			RouteID:         "inbound",
			OriginStop:      "s_work",
			DestinationStop: "s_home",
			BoardingTime:    &board,
		},
	}

	plan := domain.NewPlan(home)
	err := plan.Add(
		domain.NewActivity(1, "home", home, domain.StartOfDay, clock(t, "07:00:00")),
		car,
		domain.NewActivity(2, "work", work, clock(t, "07:30:00"), clock(t, "17:30:00")),
		bus,
		domain.NewActivity(3, "home", home, clock(t, "18:00:00"), domain.EndOfDay),
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	plan.Autocomplete()
	return plan
}

func commuterPopulation(t *testing.T) *domain.Population {
	t.Helper()
	p := domain.NewPerson("alice", map[string]any{"age": int64(35), "subpopulation": "default"}, domain.Location{})
	p.Plan = commuterPlan(t)
	pop := domain.NewPopulation("test")
	pop.AddPerson("hh_7", p)
	return pop
}

func writePopulation(t *testing.T, pop *domain.Population, opts WriteOptions) (string, string) {
	t.Helper()
	var plans, attrs bytes.Buffer
	w, err := NewWriter(&plans, &attrs, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for h := range pop.Households() {
		if err := w.AddHousehold(h); err != nil {
			t.Fatalf("AddHousehold: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return plans.String(), attrs.String()
}

func TestWriteReadRoundTripV12(t *testing.T) {
	pop := commuterPopulation(t)
	doc, _ := writePopulation(t, pop, DefaultWriteOptions())

	if !strings.Contains(doc, "population_v6.dtd") {
		t.Fatalf("missing v6 doctype:\n%s", doc)
	}
	if strings.Contains(doc, "<attributes></attributes>") {
		t.Fatalf("empty attributes element written:\n%s", doc)
	}

	people := readAll(t, doc, DefaultReadOptions())
	if len(people) != 1 {
		t.Fatalf("persons = %d, want 1", len(people))
	}
	got := people[0]
	want, _ := pop.Get("hh_7")
	orig, _ := want.Get("alice")

	if !got.Plan.Equal(orig.Plan) {
		t.Fatalf("plan changed in round trip:\ngot  %v\nwant %v", got.Plan.Day, orig.Plan.Day)
	}
	if got.Attribute("hid") != "hh_7" || got.Attributes["age"] != int64(35) {
		t.Fatalf("attributes = %v", got.Attributes)
	}
	if _, ok := orig.Attributes["hid"]; ok {
		t.Fatalf("writer mutated the person's attributes")
	}

	car := got.Plan.Day[1].(*domain.Leg)
	if strings.Join(car.NetworkRoute(), " ") != "1-2 2-3 3-4" || car.Distance() != 10100 {
		t.Fatalf("car route = %+v", car.Route)
	}
	if car.Attributes["enterVehicleTime"] != "25200.0" {
		t.Fatalf("leg attributes = %v", car.Attributes)
	}

	bus := got.Plan.Day[3].(*domain.Leg)
	if bus.ServiceID() != "line_9" || bus.RouteID() != "inbound" || bus.OStop() != "s_work" || bus.DStop() != "s_home" {
		t.Fatalf("transit = %+v", bus.Route.Transit)
	}
	if bt := bus.BoardingTime(); bt == nil || domain.FormatTimeOfDay(*bt) != "17:35:00" {
		t.Fatalf("boarding time = %v", bt)
	}
}

func TestWriteV11SplitsAttributes(t *testing.T) {
	opts := DefaultWriteOptions()
	opts.Version = V11
	doc, attrDoc := writePopulation(t, commuterPopulation(t), opts)

	if !strings.Contains(doc, "<act ") || strings.Contains(doc, "<activity ") {
		t.Fatalf("v11 activities must be written as <act>:\n%s", doc)
	}
	if !strings.Contains(doc, "PT1===s_work===line_9===inbound===s_home") {
		t.Fatalf("v11 transit route missing:\n%s", doc)
	}
	if strings.Contains(doc, "<attribute ") {
		t.Fatalf("v11 population carries inline attributes:\n%s", doc)
	}

	attrs, err := LoadAttributesMap(strings.NewReader(attrDoc))
	if err != nil {
		t.Fatalf("LoadAttributesMap: %v", err)
	}
	if attrs["alice"]["hid"] != "hh_7" || attrs["alice"]["age"] != int64(35) {
		t.Fatalf("object attributes = %v", attrs)
	}

	ro := DefaultReadOptions()
	ro.Version = V11
	ro.Attributes = attrs
	people := readAll(t, doc, ro)
	if !people[0].Plan.Equal(commuterPlan(t)) {
		t.Fatalf("v11 plan changed in round trip: %v", people[0].Plan.Day)
	}
	if people[0].Plan.Day[3].(*domain.Leg).DStop() != "s_home" {
		t.Fatalf("v11 transit route lost")
	}
}

func TestWriteRejectsInvalidActivity(t *testing.T) {
	p := domain.NewPerson("bob", nil, domain.Location{})
	if err := p.Plan.Add(domain.NewActivity(1, "home", domain.NewAreaLocation("zone_a"), domain.StartOfDay, domain.EndOfDay)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, nil, DefaultWriteOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	before := buf.Len()

	err = w.AddPerson(p)
	if !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("err = %v, want ErrInvalidMatsim", err)
	}
	if strings.Contains(buf.String()[before:], "bob") {
		t.Fatalf("partial person written:\n%s", buf.String())
	}
}

func TestWriteNonSelectedPlans(t *testing.T) {
	pop := commuterPopulation(t)
	h, _ := pop.Get("hh_7")
	p, _ := h.Get("alice")
	alt := domain.NewPlan(domain.Location{})
	score := 12.5
	alt.Score = &score
	if err := alt.Add(domain.NewActivity(1, "home", domain.NewPointLocation(0, 0), domain.StartOfDay, domain.EndOfDay)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	p.NonSelected = []*domain.Plan{alt}

	opts := DefaultWriteOptions()
	doc, _ := writePopulation(t, pop, opts)
	if strings.Contains(doc, `selected="no"`) {
		t.Fatalf("non-selected plan written without KeepNonSelected")
	}

	opts.KeepNonSelected = true
	doc, _ = writePopulation(t, pop, opts)
	ro := DefaultReadOptions()
	ro.KeepNonSelected = true
	people := readAll(t, doc, ro)
	if len(people[0].NonSelected) != 1 || *people[0].NonSelected[0].Score != 12.5 {
		t.Fatalf("non-selected = %v", people[0].NonSelected)
	}
}

func TestEncodeDecodePlan(t *testing.T) {
	plan := commuterPlan(t)
	b, err := EncodePlan(plan, V12)
	if err != nil {
		t.Fatalf("EncodePlan: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("<plan")) {
		t.Fatalf("EncodePlan = %s", b)
	}

	got, err := DecodePlan(b, V12)
	if err != nil {
		t.Fatalf("DecodePlan: %v", err)
	}
	if !got.Equal(plan) {
		t.Fatalf("decoded plan = %v", got.Day)
	}
	if _, err := EncodePlan(plan, Version(3)); !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("EncodePlan bad version err = %v", err)
	}
}

func TestWriteFileGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "plans.xml.gz")
	if err := WriteFile(commuterPopulation(t), path, "", DefaultWriteOptions()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Fatalf("output is not gzip compressed")
	}

	pop, err := ReadPopulation(path, DefaultReadOptions(), "hid")
	if err != nil {
		t.Fatalf("ReadPopulation: %v", err)
	}
	h, ok := pop.Get("hh_7")
	if !ok || h.Len() != 1 {
		t.Fatalf("households = %d, want hh_7 with 1 person", pop.NumHouseholds())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestWriteFileLeavesNothingOnError(t *testing.T) {
	pop := domain.NewPopulation("bad")
	p := domain.NewPerson("bob", nil, domain.Location{})
	if err := p.Plan.Add(domain.NewActivity(1, "", domain.NewPointLocation(0, 0), domain.StartOfDay, domain.EndOfDay)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	pop.AddPerson("", p)

	dir := t.TempDir()
	path := filepath.Join(dir, "plans.xml")
	if err := WriteFile(pop, path, "", DefaultWriteOptions()); !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("err = %v, want ErrInvalidMatsim", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("files left after failed write: %v", entries)
	}
}
