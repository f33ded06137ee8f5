package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
)

// Metrics CSV columns, as written by the crop metric calculation.
const (
	ColYield  = "yield_kg_per_year"
	ColGHG    = "ghg_kg_co2_bia"
	ColEnergy = "energy_kWh_bia"
	ColWater  = "water_l_bia"
	ColCapex  = "capex_all_annualised_USD"
	ColOpex   = "opex_all_USD_per_year"
)

// ReadSensorMetadata reads the sensor metadata table of one building.
// Required columns: SURFACE, TYPE, orientation, Zcoor. BUILDING is optional
// and defaults to building.
func ReadSensorMetadata(path, building string) ([]bia.SensorRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require("SURFACE", "TYPE", "orientation", "Zcoor")
	if err != nil {
		return nil, err
	}
	bcol, hasBuilding := t.header["BUILDING"]

	sensors := make([]bia.SensorRecord, 0, len(t.rows))
	for i, row := range t.rows {
		s := bia.SensorRecord{Surface: cell(row, cols[0]), Building: building}
		if s.Surface == "" {
			return nil, fmt.Errorf("%w: %s line %d: empty SURFACE", bia.ErrDataShape, path, i+2)
		}
		if hasBuilding && cell(row, bcol) != "" {
			s.Building = cell(row, bcol)
		}
		if s.Type, err = bia.ParseSurfaceType(cell(row, cols[1])); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		if s.Orientation, err = bia.ParseOrientation(cell(row, cols[2])); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		if s.Z, err = t.float(row, cols[3], i, "Zcoor"); err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}

// ReadZone reads building height data (Name, height_ag, floors_ag).
// Unparseable heights become NaN and unparseable floor counts 0, so the
// floor classifier rejects that building instead of the whole zone.
func ReadZone(path string) ([]bia.Geometry, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require("Name", "height_ag", "floors_ag")
	if err != nil {
		return nil, err
	}

	zone := make([]bia.Geometry, 0, len(t.rows))
	for _, row := range t.rows {
		g := bia.Geometry{Building: cell(row, cols[0]), HeightAG: math.NaN()}
		if g.Building == "" {
			continue
		}
		if h, err := strconv.ParseFloat(cell(row, cols[1]), 64); err == nil {
			g.HeightAG = h
		}
		if f, err := strconv.ParseFloat(cell(row, cols[2]), 64); err == nil && f == math.Trunc(f) {
			g.FloorsAG = int(f)
		}
		zone = append(zone, g)
	}
	return zone, nil
}

// ReadMetrics reads one crop type's per-surface metrics.
func ReadMetrics(path, cropType string) (crop.MetricsTable, error) {
	mt := crop.MetricsTable{Crop: cropType}

	t, err := readTable(path)
	if err != nil {
		return mt, err
	}
	names := []string{"SURFACE", ColYield, ColGHG, ColEnergy, ColWater, ColCapex, ColOpex}
	cols, err := t.require(names...)
	if err != nil {
		return mt, err
	}

	for i, row := range t.rows {
		var v [6]float64
		for j := range v {
			if v[j], err = t.float(row, cols[j+1], i, names[j+1]); err != nil {
				return mt, err
			}
		}
		mt.Surfaces = append(mt.Surfaces, cell(row, cols[0]))
		mt.Rows = append(mt.Rows, crop.Metrics{
			Yield: v[0], GHG: v[1], Energy: v[2], Water: v[3], Capex: v[4], Opex: v[5],
		})
	}
	return mt, nil
}

// ReadCycles reads one crop type's eligible growing days per surface
// (SURFACE, days). days is a ';'-separated list of day indices.
func ReadCycles(path, cropType string) (crop.CycleTable, error) {
	ct := crop.CycleTable{Crop: cropType, Days: make(map[string][]int)}

	t, err := readTable(path)
	if err != nil {
		return ct, err
	}
	cols, err := t.require("SURFACE", "days")
	if err != nil {
		return ct, err
	}

	for i, row := range t.rows {
		srf := cell(row, cols[0])
		if _, dup := ct.Days[srf]; dup {
			return ct, fmt.Errorf("%w: %s line %d: surface %q listed twice", bia.ErrDataShape, path, i+2, srf)
		}
		days, err := ParseDays(cell(row, cols[1]))
		if err != nil {
			return ct, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		ct.Days[srf] = days
	}
	return ct, nil
}

// ParseDays parses "10;200;201" into day indices. An empty string is an
// empty list.
func ParseDays(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return []int{}, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' || r == ' ' })
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: bad day %q", bia.ErrDataShape, p)
		}
		days = append(days, d)
	}
	return days, nil
}
