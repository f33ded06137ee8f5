package bia

import "errors"

// Error taxonomy. Callers match with errors.Is; producers wrap with %w to add
// the building name and the failing input.
var (
	// ErrNoPotential means no sensor survived filtering. The building is
	// skipped and the run continues.
	ErrNoPotential = errors.New("no BIA potential")

	// ErrConfiguration is fatal for the whole run and is raised before any
	// building task is dispatched.
	ErrConfiguration = errors.New("configuration error")

	// ErrGeometry aborts one building: floor binning is impossible.
	ErrGeometry = errors.New("geometry error")

	// ErrDataShape aborts one building: tables disagree on keys or shape.
	ErrDataShape = errors.New("data shape error")
)
