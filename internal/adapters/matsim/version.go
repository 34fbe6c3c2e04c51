package matsim

import (
	"fmt"
	"strconv"

	"activity-plan-service/internal/domain"
)

// Version selects between the two supported population encodings.
type Version int

const (
	// V11 writes population_v5 plans with attributes in a separate objectAttributes document.
	V11 Version = 11
	// V12 writes population_v6 plans with inline person attributes.
	V12 Version = 12
)

// ParseVersion accepts "11" or "12".
func ParseVersion(s string) (Version, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: version %q", domain.ErrInvalidMatsim, s)
	}
	v := Version(n)
	return v, v.Validate()
}

func (v Version) Validate() error {
	if v != V11 && v != V12 {
		return fmt.Errorf("%w: unsupported version %d, must be 11 or 12", domain.ErrInvalidMatsim, int(v))
	}
	return nil
}

func (v Version) activityElement() string {
	if v == V11 {
		return "act"
	}
	return "activity"
}

func (v Version) doctype() string {
	if v == V11 {
		return `DOCTYPE population SYSTEM "http://matsim.org/files/dtd/population_v5.dtd"`
	}
	return `DOCTYPE population SYSTEM "http://matsim.org/files/dtd/population_v6.dtd"`
}

const objectAttributesDoctype = `DOCTYPE objectAttributes SYSTEM "http://matsim.org/files/dtd/objectattributes_v1.dtd"`

func (v Version) String() string {
	return "v" + strconv.Itoa(int(v))
}
