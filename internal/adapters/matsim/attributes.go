package matsim

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"activity-plan-service/internal/domain"
)

const (
	classString   = "java.lang.String"
	classBoolean  = "java.lang.Boolean"
	classInteger  = "java.lang.Integer"
	classDouble   = "java.lang.Double"
	classVehicles = "org.matsim.vehicles.PersonVehicles"

	enterVehicleTimeKey = "enterVehicleTime"
)

// decodeAttribute converts an attribute's text according to its Java class.
// Unknown classes are kept as strings.
func decodeAttribute(a xmlAttribute) (any, error) {
	text := strings.TrimSpace(a.Value)
	switch a.Class {
	case classBoolean:
		return strings.EqualFold(text, "true"), nil
	case classInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", domain.ErrInvalidMatsim, a.Name, err)
		}
		return n, nil
	case classDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", domain.ErrInvalidMatsim, a.Name, err)
		}
		return f, nil
	case classVehicles:
		vehicles := domain.PersonVehicles{}
		if err := json.Unmarshal([]byte(text), &vehicles); err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", domain.ErrInvalidMatsim, a.Name, err)
		}
		return vehicles, nil
	default:
		return a.Value, nil
	}
}

func decodeAttributes(attrs []xmlAttribute) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		v, err := decodeAttribute(a)
		if err != nil {
			return nil, err
		}
		out[a.Name] = v
	}
	return out, nil
}

// encodeAttribute picks the Java class from the Go type of v.
func encodeAttribute(name string, v any) (xmlAttribute, error) {
	a := xmlAttribute{Name: name}
	switch v := v.(type) {
	case string:
		a.Class, a.Value = classString, v
	case bool:
		a.Class, a.Value = classBoolean, strconv.FormatBool(v)
	case int:
		a.Class, a.Value = classInteger, strconv.Itoa(v)
	case int64:
		a.Class, a.Value = classInteger, strconv.FormatInt(v, 10)
	case float64:
		a.Class, a.Value = classDouble, strconv.FormatFloat(v, 'f', -1, 64)
	case domain.PersonVehicles:
		b, err := json.Marshal(v)
		if err != nil {
			return a, fmt.Errorf("encode attribute %s: %w", name, err)
		}
		a.Class, a.Value = classVehicles, string(b)
	default:
		a.Class, a.Value = classString, fmt.Sprint(v)
	}
	return a, nil
}

// encodeAttributes writes attributes in key order. It returns nil when there
// is nothing to write so no empty attributes element is emitted.
func encodeAttributes(attrs map[string]any) (*xmlAttributes, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := &xmlAttributes{}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		a, err := encodeAttribute(k, attrs[k])
		if err != nil {
			return nil, err
		}
		out.Attributes = append(out.Attributes, a)
	}
	return out, nil
}

// Leg attributes are kept as raw text. enterVehicleTime is the one value
// MATSim expects as a double.
func decodeLegAttributes(x *xmlAttributes) map[string]string {
	if x == nil || len(x.Attributes) == 0 {
		return nil
	}
	out := make(map[string]string, len(x.Attributes))
	for _, a := range x.Attributes {
		out[a.Name] = a.Value
	}
	return out
}

func encodeLegAttributes(attrs map[string]string) *xmlAttributes {
	if len(attrs) == 0 {
		return nil
	}
	out := &xmlAttributes{}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		class := classString
		if k == enterVehicleTimeKey {
			class = classDouble
		}
		out.Attributes = append(out.Attributes, xmlAttribute{Name: k, Class: class, Value: attrs[k]})
	}
	return out
}

// LoadAttributesMap reads a v11 objectAttributes document into person
// attributes keyed by person id.
func LoadAttributesMap(r io.Reader) (map[string]map[string]any, error) {
	dec := xml.NewDecoder(r)
	out := make(map[string]map[string]any)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load attributes: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "object" {
			continue
		}
		var obj xmlObject
		if err := dec.DecodeElement(&obj, &start); err != nil {
			return nil, fmt.Errorf("load attributes: %w", err)
		}
		attrs, err := decodeAttributes(obj.Attributes)
		if err != nil {
			return nil, fmt.Errorf("load attributes: object %s: %w", obj.ID, err)
		}
		out[obj.ID] = attrs
	}
}

type typedValue struct {
	Class string `json:"class"`
	Value string `json:"value"`
}

// MarshalAttributes encodes person attributes as a JSON object that keeps
// each value's MATSim class, so UnmarshalAttributes restores the Go types.
func MarshalAttributes(attrs map[string]any) ([]byte, error) {
	out := make(map[string]typedValue, len(attrs))
	for k, v := range attrs {
		a, err := encodeAttribute(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = typedValue{Class: a.Class, Value: a.Value}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return b, nil
}

func UnmarshalAttributes(data []byte) (map[string]any, error) {
	var in map[string]typedValue
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	out := make(map[string]any, len(in))
	for k, tv := range in {
		v, err := decodeAttribute(xmlAttribute{Name: k, Class: tv.Class, Value: tv.Value})
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
