package solar

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// PAR conversion constants.
// Reference: https://www.controlledenvironments.org/wp-content/uploads/sites/6/2017/06/Ch01.pdf
const (
	// PARFraction is the share of solar energy in the 400-700 nm band.
	PARFraction = 0.45
	// UmolPerWhHour converts Wh/m2 to umol/m2 over one hour (4.57 umol/J x 3600 s).
	UmolPerWhHour = 4.57 * 3600
)

// MolPerWh is the hourly conversion factor from Wh/m2 to mol/m2 of PAR.
const MolPerWh = PARFraction * UmolPerWhHour / 1e6

// DailyLightIntegral converts one sensor's 8760 hourly values (Wh/m2) into
// 365 daily values (mol/m2/day). Rows 0-23 make day 0, rows 24-47 day 1, and
// so on. Any other row count is rejected rather than bucketed partially.
func DailyLightIntegral(hourly []float64) ([]float64, error) {
	if len(hourly) != bia.HoursInYear {
		return nil, fmt.Errorf("%w: %d hourly rows, want %d",
			bia.ErrDataShape, len(hourly), bia.HoursInYear)
	}

	mol := make([]float64, len(hourly))
	floats.ScaleTo(mol, MolPerWh, hourly)

	daily := make([]float64, bia.DaysInYear)
	for d := range daily {
		daily[d] = floats.Sum(mol[d*bia.HoursInDay : (d+1)*bia.HoursInDay])
	}
	return daily, nil
}

// DailyDLI is the DLI table of one building: Values[i] holds the 365 daily
// values of Surfaces[i]. Sensors are rows and days are columns.
type DailyDLI struct {
	Surfaces []string
	Values   [][]float64
}

// ConvertTable applies DailyLightIntegral to every column of a filtered
// radiation table, keeping column order.
func ConvertTable(rad RadiationTable) (*DailyDLI, error) {
	if err := rad.Validate(); err != nil {
		return nil, err
	}

	out := &DailyDLI{
		Surfaces: append([]string(nil), rad.Surfaces...),
		Values:   make([][]float64, rad.Len()),
	}
	for i, series := range rad.Series {
		daily, err := DailyLightIntegral(series)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", rad.Surfaces[i], err)
		}
		out.Values[i] = daily
	}
	return out, nil
}
