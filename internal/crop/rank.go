// Package crop ranks candidate crop types per building surface and merges
// their growing windows into one 365-day calendar per surface.
package crop

import (
	"fmt"
	"math"
	"sort"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// =============================================================================
// Metrics
// =============================================================================

// Metrics are the precomputed per-surface figures of one crop type.
type Metrics struct {
	Yield  float64 // kg/year (yield_kg_per_year)
	GHG    float64 // kg CO2-eq (ghg_kg_co2_bia)
	Energy float64 // kWh (energy_kWh_bia)
	Water  float64 // L (water_l_bia)
	Capex  float64 // USD, annualised (capex_all_annualised_USD)
	Opex   float64 // USD/year (opex_all_USD_per_year)
}

// MetricsTable holds one crop type's metrics for every surface of a building.
// Rows[i] belongs to Surfaces[i].
type MetricsTable struct {
	Crop     string
	Surfaces []string
	Rows     []Metrics
}

// Score reduces metrics to the objective's scalar. Per-kg objectives divide
// by yield; a zero yield gives +Inf (or NaN for 0/0) instead of failing.
func Score(o bia.Objective, m Metrics) (float64, error) {
	switch o {
	case bia.ObjectiveCropYield:
		return m.Yield, nil
	case bia.ObjectiveGHGEmission:
		return m.GHG, nil
	case bia.ObjectiveEnergyUse:
		return m.Energy, nil
	case bia.ObjectiveWaterUse:
		return m.Water, nil
	case bia.ObjectiveAnnualisedCAPEX:
		return m.Capex, nil
	case bia.ObjectiveAnnualisedCAPEXPerKgYield:
		return m.Capex / m.Yield, nil
	case bia.ObjectiveAnnualOPEX:
		return m.Opex, nil
	case bia.ObjectiveAnnualOPEXPerKgYield:
		return m.Opex / m.Yield, nil
	case bia.ObjectiveAnnualCost:
		return m.Capex + m.Opex, nil
	case bia.ObjectiveAnnualCostPerKgYield:
		return (m.Capex + m.Opex) / m.Yield, nil
	}
	return 0, fmt.Errorf("%w: unknown objective %q", bia.ErrConfiguration, o)
}

// =============================================================================
// Ranking
// =============================================================================

// SurfaceRank is the crop preference order of one surface.
type SurfaceRank struct {
	Surface   string
	Order     []int     // Crop indices, best first
	Crops     []string  // Crop names, best first
	Scores    []float64 // Objective score per crop, in configured crop order
	NonFinite bool      // At least one score is NaN or Inf
}

// Ranking is the per-surface crop ranking of one building.
type Ranking struct {
	Objective bia.Objective
	CropTypes []string
	Surfaces  []SurfaceRank
}

// NonFinite returns the number of surfaces with at least one non-finite
// score.
func (r *Ranking) NonFinite() int {
	n := 0
	for _, sr := range r.Surfaces {
		if sr.NonFinite {
			n++
		}
	}
	return n
}

// Rank orders the crop types on every surface by the objective. CropYield is
// ranked highest first, every other objective lowest first. Ties keep the
// configured crop order. Non-finite scores rank after all finite scores.
//
// tables[k] must hold the metrics of crops[k]; all tables must cover the same
// surface ids. Surfaces are reported in the order of tables[0].
func Rank(objective bia.Objective, crops []string, tables []MetricsTable) (*Ranking, error) {
	if !objective.Valid() {
		return nil, fmt.Errorf("%w: unknown objective %q", bia.ErrConfiguration, objective)
	}
	if len(crops) == 0 {
		return nil, fmt.Errorf("%w: no crop types", bia.ErrConfiguration)
	}
	if len(tables) != len(crops) {
		return nil, fmt.Errorf("%w: %d metrics tables for %d crop types",
			bia.ErrDataShape, len(tables), len(crops))
	}

	index, err := indexTables(crops, tables)
	if err != nil {
		return nil, err
	}

	r := &Ranking{
		Objective: objective,
		CropTypes: append([]string(nil), crops...),
		Surfaces:  make([]SurfaceRank, 0, len(tables[0].Surfaces)),
	}

	for _, srf := range tables[0].Surfaces {
		sr := SurfaceRank{
			Surface: srf,
			Scores:  make([]float64, len(crops)),
			Order:   make([]int, len(crops)),
		}
		for k := range crops {
			row := tables[k].Rows[index[k][srf]]
			score, err := Score(objective, row)
			if err != nil {
				return nil, fmt.Errorf("surface %s, crop %s: %w", srf, crops[k], err)
			}
			sr.Scores[k] = score
			if !finite(sr.Scores[k]) {
				sr.NonFinite = true
			}
			sr.Order[k] = k
		}

		sort.SliceStable(sr.Order, func(a, b int) bool {
			return better(objective, sr.Scores[sr.Order[a]], sr.Scores[sr.Order[b]])
		})

		sr.Crops = make([]string, len(crops))
		for n, k := range sr.Order {
			sr.Crops[n] = crops[k]
		}
		r.Surfaces = append(r.Surfaces, sr)
	}

	return r, nil
}

// better reports whether score a ranks strictly ahead of score b.
func better(o bia.Objective, a, b float64) bool {
	fa, fb := finite(a), finite(b)
	if fa != fb {
		return fa
	}
	if !fa {
		return false
	}
	if o.Maximize() {
		return a > b
	}
	return a < b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// indexTables maps surface id to row for each table and checks that every
// table covers exactly the surfaces of the first one.
func indexTables(crops []string, tables []MetricsTable) ([]map[string]int, error) {
	index := make([]map[string]int, len(tables))
	for k, t := range tables {
		if len(t.Surfaces) != len(t.Rows) {
			return nil, fmt.Errorf("%w: crop %s has %d surfaces and %d metric rows",
				bia.ErrDataShape, crops[k], len(t.Surfaces), len(t.Rows))
		}
		index[k] = make(map[string]int, len(t.Surfaces))
		for i, srf := range t.Surfaces {
			if _, dup := index[k][srf]; dup {
				return nil, fmt.Errorf("%w: crop %s lists surface %q twice",
					bia.ErrDataShape, crops[k], srf)
			}
			index[k][srf] = i
		}
	}

	for k := 1; k < len(tables); k++ {
		if len(index[k]) != len(index[0]) {
			return nil, fmt.Errorf("%w: crop %s has %d surfaces, crop %s has %d",
				bia.ErrDataShape, crops[k], len(index[k]), crops[0], len(index[0]))
		}
		for srf := range index[0] {
			if _, ok := index[k][srf]; !ok {
				return nil, fmt.Errorf("%w: crop %s has no metrics for surface %q",
					bia.ErrDataShape, crops[k], srf)
			}
		}
	}
	return index, nil
}
