package solar

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// Policy selects which sensors are candidates for crops.
type Policy struct {
	IncludeRoof        bool    // Keep roof sensors
	IncludeWall        bool    // Keep wall sensors
	MinAnnualRadiation float64 // kWh/m2/year
}

// PolicyFromSettings extracts the filter policy from run settings.
func PolicyFromSettings(s bia.Settings) Policy {
	return Policy{
		IncludeRoof:        s.CropOnRoof,
		IncludeWall:        s.CropOnWall,
		MinAnnualRadiation: s.AnnualRadiationThreshold,
	}
}

// Keeps reports whether the policy accepts a surface type. Windows are never
// removed by the surface policy.
func (p Policy) Keeps(t bia.SurfaceType) bool {
	switch t {
	case bia.SurfaceRoof:
		return p.IncludeRoof
	case bia.SurfaceWall:
		return p.IncludeWall
	}
	return true
}

// FilterResult is the output of FilterLowPotential. Radiation and Sensors
// reference the same surface ids in the same order.
type FilterResult struct {
	MaxAnnualRadiation float64 // Wh/m2/year, across all input sensors
	Threshold          float64 // Wh/m2/year
	Radiation          RadiationTable
	Sensors            []bia.SensorRecord
}

// Empty reports whether no sensor survived. Callers treat this as a building
// without BIA potential.
func (r *FilterResult) Empty() bool {
	return len(r.Sensors) == 0
}

// FilterLowPotential drops sensors excluded by the policy and sensors whose
// annual radiation is below the threshold.
//
// The radiation table and the metadata are joined on surface id; both must
// carry exactly the same id set. Survivors keep metadata order, and the
// radiation table is narrowed to the same order.
func FilterLowPotential(rad RadiationTable, sensors []bia.SensorRecord, policy Policy) (*FilterResult, error) {
	if err := rad.Validate(); err != nil {
		return nil, err
	}
	if err := checkKeys(rad, sensors); err != nil {
		return nil, err
	}

	column := make(map[string]int, rad.Len())
	totals := make([]float64, rad.Len())
	for i, id := range rad.Surfaces {
		column[id] = i
		totals[i] = floats.Sum(rad.Series[i])
	}

	result := &FilterResult{
		Threshold: policy.MinAnnualRadiation * 1000,
	}
	if len(totals) > 0 {
		result.MaxAnnualRadiation = floats.Max(totals)
	}

	for _, s := range sensors {
		col := column[s.Surface]
		s.TotalRad = totals[col]

		if !policy.Keeps(s.Type) {
			continue
		}
		if s.TotalRad < result.Threshold {
			continue
		}

		result.Sensors = append(result.Sensors, s)
		result.Radiation.Surfaces = append(result.Radiation.Surfaces, s.Surface)
		result.Radiation.Series = append(result.Radiation.Series, rad.Series[col])
	}

	return result, nil
}

// checkKeys fails fast when metadata and radiation disagree on surface ids.
func checkKeys(rad RadiationTable, sensors []bia.SensorRecord) error {
	inRad := make(map[string]bool, rad.Len())
	for _, id := range rad.Surfaces {
		inRad[id] = true
	}

	seen := make(map[string]bool, len(sensors))
	for _, s := range sensors {
		if seen[s.Surface] {
			return fmt.Errorf("%w: duplicate sensor %q in metadata", bia.ErrDataShape, s.Surface)
		}
		seen[s.Surface] = true
		if !inRad[s.Surface] {
			return fmt.Errorf("%w: sensor %q has no radiation column", bia.ErrDataShape, s.Surface)
		}
	}
	if len(seen) != len(inRad) {
		for _, id := range rad.Surfaces {
			if !seen[id] {
				return fmt.Errorf("%w: radiation column %q has no metadata row", bia.ErrDataShape, id)
			}
		}
	}
	return nil
}
