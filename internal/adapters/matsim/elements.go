package matsim

import (
	"encoding/xml"
	"fmt"
)

// Raw MATSim population elements. Optional attributes are kept as strings so
// that an absent attribute and an empty one can be told apart.

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Class string `xml:"class,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlAttributes struct {
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlRoute struct {
	Type         string  `xml:"type,attr,omitempty"`
	StartLink    string  `xml:"start_link,attr,omitempty"`
	EndLink      string  `xml:"end_link,attr,omitempty"`
	TravTime     *string `xml:"trav_time,attr"`
	Distance     *string `xml:"distance,attr"`
	VehicleRefID string  `xml:"vehicleRefId,attr,omitempty"`
	Text         string  `xml:",chardata"`
}

type xmlLeg struct {
	Mode       string         `xml:"mode,attr"`
	DepTime    *string        `xml:"dep_time,attr"`
	TravTime   *string        `xml:"trav_time,attr"`
	Attributes *xmlAttributes `xml:"attributes"`
	Route      *xmlRoute      `xml:"route"`
}

type xmlActivity struct {
	Type      string  `xml:"type,attr"`
	Link      string  `xml:"link,attr,omitempty"`
	X         *string `xml:"x,attr"`
	Y         *string `xml:"y,attr"`
	StartTime *string `xml:"start_time,attr"`
	EndTime   *string `xml:"end_time,attr"`
}

// xmlStage is one child of a plan: exactly one of Activity or Leg is set.
type xmlStage struct {
	Activity *xmlActivity
	Leg      *xmlLeg
}

type xmlPlan struct {
	Selected string
	Score    *string
	Stages   []xmlStage

	// element name used for activities when encoding ("act" or "activity")
	actName string
}

// UnmarshalXML decodes the plan's activity and leg children in document
// order. Unknown children are skipped.
func (p *xmlPlan) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "selected":
			p.Selected = a.Value
		case "score":
			s := a.Value
			p.Score = &s
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("decode plan: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "act", "activity":
				var a xmlActivity
				if err := d.DecodeElement(&a, &t); err != nil {
					return fmt.Errorf("decode activity: %w", err)
				}
				p.Stages = append(p.Stages, xmlStage{Activity: &a})
			case "leg":
				var l xmlLeg
				if err := d.DecodeElement(&l, &t); err != nil {
					return fmt.Errorf("decode leg: %w", err)
				}
				p.Stages = append(p.Stages, xmlStage{Leg: &l})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p xmlPlan) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "plan"}
	start.Attr = nil
	if p.Selected != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "selected"}, Value: p.Selected})
	}
	if p.Score != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "score"}, Value: *p.Score})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	actName := p.actName
	if actName == "" {
		actName = "activity"
	}
	for _, s := range p.Stages {
		var err error
		switch {
		case s.Activity != nil:
			err = e.EncodeElement(s.Activity, xml.StartElement{Name: xml.Name{Local: actName}})
		case s.Leg != nil:
			err = e.EncodeElement(s.Leg, xml.StartElement{Name: xml.Name{Local: "leg"}})
		}
		if err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type xmlPerson struct {
	XMLName    xml.Name       `xml:"person"`
	ID         string         `xml:"id,attr"`
	Attributes *xmlAttributes `xml:"attributes"`
	Plans      []xmlPlan      `xml:"plan"`
}

type xmlObject struct {
	XMLName    xml.Name       `xml:"object"`
	ID         string         `xml:"id,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
}
