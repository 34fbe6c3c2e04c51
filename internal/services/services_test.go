package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"activity-plan-service/internal/adapters/cache"
	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/domain"
)

const population = `<?xml version="1.0" encoding="UTF-8"?>
<population>
  <person id="a">
    <attributes><attribute name="hid" class="java.lang.String">h1</attribute></attributes>
    <plan selected="yes">
      <activity type="home" x="0" y="0" end_time="08:00:00"/>
      <leg mode="car" trav_time="00:30:00"/>
      <activity type="work" x="5000" y="0" end_time="17:00:00"/>
      <leg mode="car" trav_time="00:30:00"/>
      <activity type="home" x="0" y="0"/>
    </plan>
  </person>
  <person id="b">
    <attributes><attribute name="hid" class="java.lang.String">h1</attribute></attributes>
    <plan selected="yes">
      <activity type="home" x="0" y="0" end_time="09:00:00"/>
      <leg mode="walk" trav_time="00:15:00"/>
      <activity type="shop" x="800" y="0" end_time="20:00:00"/>
    </plan>
  </person>
  <person id="c">
    <plan selected="yes">
      <activity type="home" x="10" y="10"/>
    </plan>
  </person>
</population>`

func commuter(t *testing.T, pid string) *domain.Person {
	t.Helper()
	home := domain.NewPointLocation(0, 0)
	work := domain.NewPointLocation(5000, 0)
	shop := domain.NewPointLocation(1000, 0)
	p := domain.NewPerson(pid, nil, home)
	err := p.Plan.Add(
		domain.NewActivity(1, "home", home, domain.StartOfDay, domain.Minutes(480)),
		domain.NewLeg(1, "car", domain.Minutes(480), domain.Minutes(510)),
		domain.NewActivity(2, "work", work, domain.Minutes(510), domain.Minutes(1020)),
		domain.NewLeg(2, "car", domain.Minutes(1020), domain.Minutes(1030)),
		domain.NewActivity(3, "shop", shop, domain.Minutes(1030), domain.Minutes(1080)),
		domain.NewLeg(3, "car", domain.Minutes(1080), domain.Minutes(1090)),
		domain.NewActivity(4, "home", home, domain.Minutes(1090), domain.EndOfDay),
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	p.Plan.Autocomplete()
	return p
}

func TestImportPopulation(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryPopulationRepository()

	res, err := ImportPopulation(ctx, strings.NewReader(population), repo, DefaultImportOptions())
	if err != nil {
		t.Fatalf("ImportPopulation: %v", err)
	}
	if res.Persons != 3 || res.Households != 2 {
		t.Fatalf("result = %+v, want 3 persons in 2 households", res)
	}

	rec, err := repo.GetPerson(ctx, "c")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if rec.HouseholdID != "c" {
		t.Fatalf("household = %q, want person id c", rec.HouseholdID)
	}
	rec, _ = repo.GetPerson(ctx, "b")
	if rec.HouseholdID != "h1" {
		t.Fatalf("household = %q, want h1", rec.HouseholdID)
	}
}

func TestImportPopulationStopsOnMalformedPerson(t *testing.T) {
	doc := `<population><person id="x"><plan selected="yes">
      <activity type="home" x="a" y="0"/>
    </plan></person></population>`

	repo := repositories.NewMemoryPopulationRepository()
	_, err := ImportPopulation(context.Background(), strings.NewReader(doc), repo, DefaultImportOptions())
	if !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("err = %v, want ErrInvalidMatsim", err)
	}
}

func TestImportFileThroughSQL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.xml.gz")

	src := repositories.NewMemoryPopulationRepository()
	if _, err := ImportPopulation(ctx, strings.NewReader(population), src, DefaultImportOptions()); err != nil {
		t.Fatalf("ImportPopulation: %v", err)
	}
	if n, err := ExportPopulation(ctx, src, path, "", matsim.DefaultWriteOptions()); err != nil || n != 3 {
		t.Fatalf("ExportPopulation = %d, %v", n, err)
	}

	conn := openSQL(t)
	repo := repositories.NewSQLPopulationRepository(conn, "sqlite")
	res, err := ImportFile(ctx, path, repo, DefaultImportOptions())
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Persons != 3 || res.Households != 2 {
		t.Fatalf("result = %+v", res)
	}

	rec, err := repo.GetPerson(ctx, "a")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	orig, _ := src.GetPerson(ctx, "a")
	if !rec.Person.Plan.Equal(orig.Person.Plan) {
		t.Fatalf("plan changed through export and import: %v", rec.Person.Plan.Day)
	}
}

func TestRepairPopulation(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryPopulationRepository()

	gapped := commuter(t, "gap")
	gapped.Plan.Day[1].SetStart(domain.Minutes(490))
	if err := repo.SavePerson(ctx, "h1", gapped); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	unlocated := commuter(t, "unlocated")
	unlocated.Plan.Day[3].(*domain.Leg).EndLocation = domain.NewAreaLocation("elsewhere")
	if err := repo.SavePerson(ctx, "h2", unlocated); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	opts := DefaultRepairOptions()
	opts.FixLocations = false
	report, err := RepairPopulation(ctx, repo, opts)
	if err != nil {
		t.Fatalf("RepairPopulation: %v", err)
	}
	if report.Persons != 2 || report.Repaired != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].PersonID != "unlocated" {
		t.Fatalf("failures = %+v", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, domain.ErrLocationConsistency) {
		t.Fatalf("failure err = %v", report.Failures[0].Err)
	}

	rec, _ := repo.GetPerson(ctx, "gap")
	if !rec.Person.Plan.ValidTimeSequence() {
		t.Fatalf("times not repaired")
	}

	report, err = RepairPopulation(ctx, repo, DefaultRepairOptions())
	if err != nil {
		t.Fatalf("RepairPopulation: %v", err)
	}
	if report.Repaired != 2 || len(report.Failures) != 0 {
		t.Fatalf("second report = %+v", report)
	}
}

type failingRepo struct {
	*repositories.MemoryPopulationRepository
}

func (failingRepo) SavePerson(ctx context.Context, hid string, p *domain.Person) error {
	return errors.New("disk full")
}

func TestRepairPopulationStopsOnStorageError(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryPopulationRepository()
	for _, pid := range []string{"a", "b", "c"} {
		if err := mem.SavePerson(ctx, "", commuter(t, pid)); err != nil {
			t.Fatalf("SavePerson: %v", err)
		}
	}

	_, err := RepairPopulation(ctx, failingRepo{mem}, DefaultRepairOptions())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want storage error", err)
	}
}

type mapCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	puts int
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) Put(ctx context.Context, key string, report []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = report
	c.puts++
	return nil
}

func TestValidatePlanXML(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{m: map[string][]byte{}}

	report, err := ValidatePlanXML(ctx, []byte(population), matsim.V12, c)
	if err != nil {
		t.Fatalf("ValidatePlanXML: %v", err)
	}
	if report.Persons != 3 || report.Valid != 2 || report.Invalid != 1 || report.Cached {
		t.Fatalf("report = %+v", report)
	}

	b := report.People[1]
	if b.PersonID != "b" || b.Valid || b.ValidEndOfDay || b.Closed {
		t.Fatalf("person b = %+v", b)
	}
	a := report.People[0]
	if !a.Closed || !a.HomeBased || len(a.Activities) != 2 || a.Modes[0] != "car" {
		t.Fatalf("person a = %+v", a)
	}

	again, err := ValidatePlanXML(ctx, []byte(population), matsim.V12, c)
	if err != nil {
		t.Fatalf("ValidatePlanXML cached: %v", err)
	}
	if !again.Cached || again.Valid != 2 || c.puts != 1 {
		t.Fatalf("cached report = %+v puts = %d", again, c.puts)
	}
}

func TestValidatePlanXMLIgnoresEntryForOtherBody(t *testing.T) {
	ctx := context.Background()
	other, err := cache.SealReport([]byte("<population/>"), []byte(`{"version":12,"persons":99}`))
	if err != nil {
		t.Fatalf("SealReport: %v", err)
	}
	key := cache.ReportKey(int(matsim.V12), []byte(population))
	c := &mapCache{m: map[string][]byte{key: other}}

	report, err := ValidatePlanXML(ctx, []byte(population), matsim.V12, c)
	if err != nil {
		t.Fatalf("ValidatePlanXML: %v", err)
	}
	if report.Cached || report.Persons != 3 || c.puts != 1 {
		t.Fatalf("report = %+v puts = %d, want a fresh report", report, c.puts)
	}
}

func TestValidatePlanXMLReportsDataQuality(t *testing.T) {
	doc := `<population><person id="p1"><plan selected="yes">
      <activity type="home" link="1" x="0" y="0" end_time="08:00:00"/>
      <leg mode="car" trav_time="01:00:00">
        <route type="links" start_link="9" end_link="7">9 8 7</route>
      </leg>
      <activity type="work" link="2" x="5000" y="0" end_time="06:00:00"/>
      <leg mode="car" trav_time="00:30:00"/>
      <activity type="home" link="1" x="0" y="0"/>
    </plan></person></population>`

	report, err := ValidatePlanXML(context.Background(), []byte(doc), matsim.V12, nil)
	if err != nil {
		t.Fatalf("ValidatePlanXML: %v", err)
	}
	if report.Invalid != 1 {
		t.Fatalf("report = %+v, want one invalid person", report)
	}

	pv := report.People[0]
	if pv.Valid || pv.ValidTimes || pv.ValidLocations {
		t.Fatalf("person = %+v, want invalid times and locations", pv)
	}
	var negative, locations bool
	for _, e := range pv.Errors {
		negative = negative || strings.Contains(e, "component 2 ends at 06:00:00 before it starts at 09:00:00")
		locations = locations || strings.Contains(e, domain.ErrLocationConsistency.Error())
	}
	if !negative || !locations {
		t.Fatalf("errors = %q", pv.Errors)
	}
}

func TestValidatePlanXMLMalformed(t *testing.T) {
	_, err := ValidatePlanXML(context.Background(), []byte("<population><person id="), matsim.V12, nil)
	if !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("err = %v, want ErrInvalidMatsim", err)
	}
	_, err = ValidatePlanXML(context.Background(), []byte(population), matsim.Version(9), nil)
	if !errors.Is(err, domain.ErrInvalidMatsim) {
		t.Fatalf("err = %v, want ErrInvalidMatsim", err)
	}
}

func TestShiftMode(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryPopulationRepository()
	if err := repo.SavePerson(ctx, "h", commuter(t, "p")); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	p, err := ShiftMode(ctx, repo, ModeShiftRequest{PersonID: "p", Seq: 3, Mode: "walk"}, domain.DefaultModeSpeeds)
	if err != nil {
		t.Fatalf("ShiftMode: %v", err)
	}
	for l := range p.Plan.Legs() {
		if l.Mode != "walk" {
			t.Fatalf("leg %d mode = %s, want walk", l.Seq, l.Mode)
		}
	}

	if _, err := ShiftMode(ctx, repo, ModeShiftRequest{PersonID: "p", Seq: 2, Mode: "bus"}, domain.DefaultModeSpeeds); !errors.Is(err, domain.ErrSequence) {
		t.Fatalf("err = %v, want ErrSequence", err)
	}
	if _, err := ShiftMode(ctx, repo, ModeShiftRequest{PersonID: "nobody", Seq: 1, Mode: "bus"}, domain.DefaultModeSpeeds); !errors.Is(err, domain.ErrPersonNotFound) {
		t.Fatalf("err = %v, want ErrPersonNotFound", err)
	}
}

func TestRemoveActivity(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryPopulationRepository()
	if err := repo.SavePerson(ctx, "h", commuter(t, "p")); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	p, err := RemoveActivity(ctx, repo, "p", 4)
	if err != nil {
		t.Fatalf("RemoveActivity: %v", err)
	}
	if p.Plan.Len() != 5 || !p.Plan.IsValid() || !p.Plan.ValidEndOfDayTime() {
		t.Fatalf("plan = %v", p.Plan.Day)
	}
	if got := p.Plan.Day[2].(*domain.Activity).Act; got != "work" {
		t.Fatalf("middle activity = %s, want work", got)
	}

	if _, err := RemoveActivity(ctx, repo, "p", 1); !errors.Is(err, domain.ErrSequence) {
		t.Fatalf("err = %v, want ErrSequence", err)
	}
	rec, err := repo.GetPerson(ctx, "p")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if rec.Person.Plan.Len() != 5 || !rec.Person.Plan.IsValid() {
		t.Fatalf("stored plan changed by failed edit: %v", rec.Person.Plan.Day)
	}
}
