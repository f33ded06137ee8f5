// Package facade labels envelope sensors with their floor number and their
// wall zone relative to the windows on the same floor.
package facade

import (
	"fmt"
	"math"
	"sort"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// Classify sets Floor and WallZone on every sensor in place.
//
// Floors: facade sensors are binned by elevation into geo.FloorsAG
// equal-width bins over the observed elevation range; roof sensors get
// floor 0. Wall zones: per orientation and floor, wall sensors above the
// median window elevation are upper, below are lower, anything else is side.
// Windows and roof sensors are non_wall.
func Classify(sensors []bia.SensorRecord, geo bia.Geometry) error {
	if err := checkGeometry(geo); err != nil {
		return err
	}

	if err := AssignFloors(sensors, geo.FloorsAG); err != nil {
		return err
	}
	AssignWallZones(sensors, geo.FloorsAG)
	return nil
}

func checkGeometry(geo bia.Geometry) error {
	if geo.FloorsAG <= 0 {
		return fmt.Errorf("%w: building %s has %d above-ground floors",
			bia.ErrGeometry, geo.Building, geo.FloorsAG)
	}
	if math.IsNaN(geo.HeightAG) || math.IsInf(geo.HeightAG, 0) || geo.HeightAG <= 0 {
		return fmt.Errorf("%w: building %s has above-ground height %v",
			bia.ErrGeometry, geo.Building, geo.HeightAG)
	}
	return nil
}

// AssignFloors labels facade sensors 1..nFloors and roof sensors 0.
func AssignFloors(sensors []bia.SensorRecord, nFloors int) error {
	if nFloors <= 0 {
		return fmt.Errorf("%w: %d floors", bia.ErrGeometry, nFloors)
	}

	var facade []int
	for i := range sensors {
		if sensors[i].IsFacade() {
			if z := sensors[i].Z; math.IsNaN(z) || math.IsInf(z, 0) {
				return fmt.Errorf("%w: non-finite elevation %v for sensor %s", bia.ErrGeometry, z, sensors[i].Surface)
			}
			facade = append(facade, i)
		} else {
			sensors[i].Floor = 0
		}
	}
	if len(facade) == 0 {
		return nil
	}

	sort.SliceStable(facade, func(a, b int) bool {
		return sensors[facade[a]].Z < sensors[facade[b]].Z
	})

	lo := sensors[facade[0]].Z
	hi := sensors[facade[len(facade)-1]].Z
	edges := binEdges(lo, hi, nFloors)
	for _, i := range facade {
		sensors[i].Floor = binIndex(edges, sensors[i].Z) + 1
	}
	return nil
}

// binEdges returns n+1 right-closed bin edges over [lo, hi]. The lowest edge
// is pushed down by 0.1% of the range so lo lands in the first bin. A zero
// range is widened by 0.1% of |lo| (or 0.001) on both sides.
func binEdges(lo, hi float64, n int) []float64 {
	if lo == hi {
		adj := 0.001 * math.Abs(lo)
		if lo == 0 {
			adj = 0.001
		}
		lo -= adj
		hi += adj
		return linspace(lo, hi, n+1)
	}

	edges := linspace(lo, hi, n+1)
	edges[0] -= (hi - lo) * 0.001
	return edges
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// binIndex finds the bin (edges[k], edges[k+1]] holding z, clamped to the
// valid range.
func binIndex(edges []float64, z float64) int {
	n := len(edges) - 1
	k := sort.Search(n, func(k int) bool { return z <= edges[k+1] })
	if k >= n {
		k = n - 1
	}
	return k
}

// AssignWallZones labels every sensor with a wall zone. Floors must already
// be assigned.
func AssignWallZones(sensors []bia.SensorRecord, nFloors int) {
	for i := range sensors {
		sensors[i].WallZone = bia.WallZoneUnset
	}

	for _, o := range bia.FacadeOrientations {
		for floor := 1; floor <= nFloors; floor++ {
			var walls []int
			var windowZ []float64
			for i := range sensors {
				s := &sensors[i]
				if s.Orientation != o || s.Floor != floor {
					continue
				}
				switch s.Type {
				case bia.SurfaceWall:
					walls = append(walls, i)
				case bia.SurfaceWindow:
					windowZ = append(windowZ, s.Z)
				}
			}

			median, ok := Median(windowZ)
			for _, i := range walls {
				sensors[i].WallZone = zoneFor(sensors[i].Z, median, ok)
			}
		}
	}

	// Windows, roofs and walls outside the four facade orientations.
	for i := range sensors {
		if sensors[i].WallZone == bia.WallZoneUnset {
			sensors[i].WallZone = bia.WallZoneNonWall
		}
	}
}

func zoneFor(z, median float64, hasWindows bool) bia.WallZone {
	switch {
	case !hasWindows:
		return bia.WallZoneSide
	case z > median:
		return bia.WallZoneUpper
	case z < median:
		return bia.WallZoneLower
	}
	return bia.WallZoneSide
}

// Median returns the median of values, averaging the two middle values for
// an even count. ok is false for an empty input.
func Median(values []float64) (median float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
