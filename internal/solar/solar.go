// Package solar converts simulated envelope irradiance into crop-usable
// light. It filters sensor points with too little annual radiation and turns
// the surviving hourly series into Daily Light Integrals.
package solar

import (
	"fmt"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// RadiationTable holds hourly irradiance per sensor in Wh/m2.
// Series[i] is the hourly series of Surfaces[i].
type RadiationTable struct {
	Surfaces []string
	Series   [][]float64
}

// Len returns the number of sensor columns.
func (t RadiationTable) Len() int {
	return len(t.Surfaces)
}

// Hours returns the number of hourly rows, or 0 for an empty table.
func (t RadiationTable) Hours() int {
	if len(t.Series) == 0 {
		return 0
	}
	return len(t.Series[0])
}

// Validate checks that the table is rectangular and keyed uniquely.
func (t RadiationTable) Validate() error {
	if len(t.Surfaces) != len(t.Series) {
		return fmt.Errorf("%w: %d surface ids for %d radiation columns",
			bia.ErrDataShape, len(t.Surfaces), len(t.Series))
	}
	seen := make(map[string]bool, len(t.Surfaces))
	hours := t.Hours()
	for i, id := range t.Surfaces {
		if seen[id] {
			return fmt.Errorf("%w: duplicate radiation column %q", bia.ErrDataShape, id)
		}
		seen[id] = true
		if len(t.Series[i]) != hours {
			return fmt.Errorf("%w: radiation column %q has %d rows, want %d",
				bia.ErrDataShape, id, len(t.Series[i]), hours)
		}
	}
	return nil
}
