package domain

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// LocationKind orders Location fields from least to most precise.
type LocationKind int

const (
	KindNone LocationKind = iota
	KindArea
	KindLink
	KindPoint
)

func (k LocationKind) String() string {
	switch k {
	case KindArea:
		return "area"
	case KindLink:
		return "link"
	case KindPoint:
		return "point"
	default:
		return "none"
	}
}

// Location is an optional reference to where something happens: an exact
// point, a network link id, a zone id, or any combination of them.
type Location struct {
	Point *orb.Point
	Link  string
	Area  string
}

func NewPointLocation(x, y float64) Location {
	return Location{Point: &orb.Point{x, y}}
}

func NewLinkLocation(link string) Location {
	return Location{Link: link}
}

func NewAreaLocation(area string) Location {
	return Location{Area: area}
}

// Has reports whether the field of the given kind is set.
func (l Location) Has(kind LocationKind) bool {
	switch kind {
	case KindPoint:
		return l.Point != nil
	case KindLink:
		return l.Link != ""
	case KindArea:
		return l.Area != ""
	}
	return false
}

// Min returns the most precise field kind present (point > link > area).
func (l Location) Min() LocationKind {
	for _, k := range []LocationKind{KindPoint, KindLink, KindArea} {
		if l.Has(k) {
			return k
		}
	}
	return KindNone
}

// Max returns the least precise field kind present.
func (l Location) Max() LocationKind {
	for _, k := range []LocationKind{KindArea, KindLink, KindPoint} {
		if l.Has(k) {
			return k
		}
	}
	return KindNone
}

// Value renders the field of the given kind, or "" when unset.
func (l Location) Value(kind LocationKind) string {
	switch kind {
	case KindPoint:
		if l.Point == nil {
			return ""
		}
		return strconv.FormatFloat(l.Point.X(), 'f', -1, 64) + "," + strconv.FormatFloat(l.Point.Y(), 'f', -1, 64)
	case KindLink:
		return l.Link
	case KindArea:
		return l.Area
	}
	return ""
}

func (l Location) Exists() bool {
	return l.Min() != KindNone
}

func (l Location) X() (float64, bool) {
	if l.Point == nil {
		return 0, false
	}
	return l.Point.X(), true
}

func (l Location) Y() (float64, bool) {
	if l.Point == nil {
		return 0, false
	}
	return l.Point.Y(), true
}

// Copy returns a Location that shares no memory with l.
func (l Location) Copy() Location {
	out := Location{Link: l.Link, Area: l.Area}
	if l.Point != nil {
		p := *l.Point
		out.Point = &p
	}
	return out
}

// Equal compares the most precise field kind both Locations have.
// It fails with ErrIncomparableLocations when they share no kind.
func (l Location) Equal(other Location) (bool, error) {
	switch {
	case l.Point != nil && other.Point != nil:
		return l.Point.Equal(*other.Point), nil
	case l.Link != "" && other.Link != "":
		return l.Link == other.Link, nil
	case l.Area != "" && other.Area != "":
		return l.Area == other.Area, nil
	}
	return false, fmt.Errorf("%w: %s vs %s", ErrIncomparableLocations, l.Min(), other.Min())
}

// Matches is Equal with incomparable Locations treated as different.
func (l Location) Matches(other Location) bool {
	eq, err := l.Equal(other)
	return err == nil && eq
}

// EqualArea compares a zone id against the area field only.
func (l Location) EqualArea(area string) bool {
	return l.Area == area
}

func (l Location) String() string {
	return l.Value(l.Min())
}
