package domain

import "errors"

// Plan validation failures. Callers match them with errors.Is.
var (
	ErrSequence            = errors.New("invalid plan sequence")
	ErrTimeConsistency     = errors.New("inconsistent plan times")
	ErrLocationConsistency = errors.New("inconsistent plan locations")
	ErrInvalidMatsim       = errors.New("invalid matsim plan")

	// Returned when two Locations share no field kind (e.g. point-only vs area-only).
	ErrIncomparableLocations = errors.New("locations share no comparable field")

	ErrNoHomeActivity = errors.New("plan has no home activity")
	ErrUnknownMode    = errors.New("no speed for mode")

	ErrPersonNotFound = errors.New("person not found")
)
