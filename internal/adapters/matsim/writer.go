package matsim

import (
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"activity-plan-service/internal/domain"
)

// WriteOptions controls the output document.
type WriteOptions struct {
	Version Version
	// written as a person attribute holding the household id; empty disables it
	HouseholdKey    string
	KeepNonSelected bool
	Comment         string
}

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Version: V12, HouseholdKey: "hid"}
}

// Writer streams persons into a MATSim population document. For V11 person
// attributes go to a separate objectAttributes document when one is given.
//
// Each person is fully encoded and validated before any of it is written.
// Close must be called to finish the documents.
type Writer struct {
	opts  WriteOptions
	plans *xml.Encoder
	attrs *xml.Encoder
}

func NewWriter(plans io.Writer, attributes io.Writer, opts WriteOptions) (*Writer, error) {
	if err := opts.Version.Validate(); err != nil {
		return nil, err
	}

	w := &Writer{opts: opts, plans: xml.NewEncoder(plans)}
	w.plans.Indent("", "  ")
	if err := writeHeader(w.plans, opts.Version.doctype(), "population", opts.Comment); err != nil {
		return nil, fmt.Errorf("write population header: %w", err)
	}

	if opts.Version == V11 && attributes != nil {
		w.attrs = xml.NewEncoder(attributes)
		w.attrs.Indent("", "  ")
		if err := writeHeader(w.attrs, objectAttributesDoctype, "objectAttributes", opts.Comment); err != nil {
			return nil, fmt.Errorf("write attributes header: %w", err)
		}
	}
	return w, nil
}

func writeHeader(enc *xml.Encoder, doctype, root, comment string) error {
	tokens := []xml.Token{
		xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)},
		xml.Directive(doctype),
	}
	if comment != "" {
		tokens = append(tokens, xml.Comment(" "+comment+" "))
	}
	tokens = append(tokens, xml.StartElement{Name: xml.Name{Local: root}})
	for _, t := range tokens {
		if err := enc.EncodeToken(t); err != nil {
			return err
		}
	}
	return nil
}

// AddHousehold writes every person in the household, tagging each with the
// household id when HouseholdKey is set.
func (w *Writer) AddHousehold(h *domain.Household) error {
	for p := range h.People() {
		if err := w.addPerson(p, h.HID); err != nil {
			return err
		}
	}
	return nil
}

// AddPerson writes a single person.
func (w *Writer) AddPerson(p *domain.Person) error {
	return w.addPerson(p, "")
}

func (w *Writer) addPerson(p *domain.Person, hid string) error {
	attrs := p.Attributes
	if hid != "" && w.opts.HouseholdKey != "" {
		attrs = maps.Clone(attrs)
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[w.opts.HouseholdKey] = hid
	}

	x, err := encodePerson(p, attrs, w.opts)
	if err != nil {
		return fmt.Errorf("write person %s: %w", p.PID, err)
	}

	if w.opts.Version == V11 {
		x.Attributes = nil
		if w.attrs != nil && len(attrs) > 0 {
			obj, err := encodeObject(p.PID, attrs)
			if err != nil {
				return fmt.Errorf("write person %s: %w", p.PID, err)
			}
			if err := w.attrs.Encode(obj); err != nil {
				return fmt.Errorf("write attributes %s: %w", p.PID, err)
			}
		}
	}

	if err := w.plans.Encode(x); err != nil {
		return fmt.Errorf("write person %s: %w", p.PID, err)
	}
	return nil
}

// Close ends the documents and flushes them. It does not close the
// underlying writers.
func (w *Writer) Close() error {
	if err := closeDocument(w.plans, "population"); err != nil {
		return fmt.Errorf("close population: %w", err)
	}
	if w.attrs != nil {
		if err := closeDocument(w.attrs, "objectAttributes"); err != nil {
			return fmt.Errorf("close attributes: %w", err)
		}
	}
	return nil
}

func closeDocument(enc *xml.Encoder, root string) error {
	if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: root}}); err != nil {
		return err
	}
	return enc.Close()
}

func encodeObject(pid string, attrs map[string]any) (*xmlObject, error) {
	enc, err := encodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return &xmlObject{ID: pid, Attributes: enc.Attributes}, nil
}

func encodePerson(p *domain.Person, attrs map[string]any, opts WriteOptions) (*xmlPerson, error) {
	x := &xmlPerson{ID: p.PID}

	a, err := encodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	x.Attributes = a

	selected, err := encodePlan(p.Plan, opts.Version, "yes")
	if err != nil {
		return nil, err
	}
	x.Plans = append(x.Plans, *selected)

	if opts.KeepNonSelected {
		for _, plan := range p.NonSelected {
			px, err := encodePlan(plan, opts.Version, "no")
			if err != nil {
				return nil, err
			}
			x.Plans = append(x.Plans, *px)
		}
	}
	return x, nil
}

// encodePlan validates every activity before building the plan element.
func encodePlan(plan *domain.Plan, v Version, selected string) (*xmlPlan, error) {
	for a := range plan.Activities() {
		if err := a.ValidateMatsim(); err != nil {
			return nil, err
		}
	}

	px := &xmlPlan{Selected: selected, actName: v.activityElement()}
	if plan.Score != nil {
		s := strconv.FormatFloat(*plan.Score, 'f', -1, 64)
		px.Score = &s
	}

	for _, c := range plan.Day {
		switch c := c.(type) {
		case *domain.Activity:
			px.Stages = append(px.Stages, xmlStage{Activity: encodeActivity(c)})
		case *domain.Leg:
			l, err := encodeLeg(c, v)
			if err != nil {
				return nil, err
			}
			px.Stages = append(px.Stages, xmlStage{Leg: l})
		}
	}
	return px, nil
}

func encodeActivity(a *domain.Activity) *xmlActivity {
	x := &xmlActivity{Type: a.Act, Link: a.Location.Link}
	if !a.StartTime.IsZero() {
		s := domain.FormatTimeOfDay(a.StartTime)
		x.StartTime = &s
	}
	if !a.EndTime.IsZero() {
		s := domain.FormatTimeOfDay(a.EndTime)
		x.EndTime = &s
	}
	if px, ok := a.Location.X(); ok {
		py, _ := a.Location.Y()
		sx := strconv.FormatFloat(px, 'f', -1, 64)
		sy := strconv.FormatFloat(py, 'f', -1, 64)
		x.X, x.Y = &sx, &sy
	}
	return x
}

func encodeLeg(l *domain.Leg, v Version) (*xmlLeg, error) {
	x := &xmlLeg{Mode: l.Mode, TravTime: formatClockPtr(l.Duration())}
	if v == V12 {
		x.Attributes = encodeLegAttributes(l.Attributes)
	}
	route, err := encodeRoute(v, l.Route)
	if err != nil {
		return nil, err
	}
	x.Route = route
	return x, nil
}

// EncodePlan renders a single selected plan as a <plan> element.
func EncodePlan(plan *domain.Plan, v Version) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	px, err := encodePlan(plan, v, "yes")
	if err != nil {
		return nil, err
	}
	b, err := xml.Marshal(px)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return b, nil
}

// WriteFile writes the population to path, gzip compressed when path ends
// in .gz. For V11 the person attributes are written to attributesPath when
// it is set. Files are written to a temporary name and renamed into place
// only after every person was written.
func WriteFile(pop *domain.Population, path, attributesPath string, opts WriteOptions) error {
	plans, err := createAtomic(path)
	if err != nil {
		return err
	}
	defer plans.abort()

	var attrs *atomicFile
	var attrsW io.Writer
	if opts.Version == V11 && attributesPath != "" {
		attrs, err = createAtomic(attributesPath)
		if err != nil {
			return err
		}
		defer attrs.abort()
		attrsW = attrs
	}

	w, err := NewWriter(plans, attrsW, opts)
	if err != nil {
		return err
	}
	for h := range pop.Households() {
		if err := w.AddHousehold(h); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := plans.commit(); err != nil {
		return err
	}
	if attrs != nil {
		return attrs.commit()
	}
	return nil
}

// atomicFile writes to a temporary file in the target directory.
type atomicFile struct {
	io.Writer
	path string
	tmp  *os.File
	gz   *gzip.Writer
	done bool
}

func createAtomic(path string) (*atomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	f := &atomicFile{Writer: tmp, path: path, tmp: tmp}
	if strings.HasSuffix(path, ".gz") {
		f.gz = gzip.NewWriter(tmp)
		f.Writer = f.gz
	}
	return f, nil
}

func (f *atomicFile) commit() error {
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename %s: %w", f.path, err)
	}
	f.done = true
	return nil
}

func (f *atomicFile) abort() {
	if f.done {
		return
	}
	f.tmp.Close()
	os.Remove(f.tmp.Name())
}
