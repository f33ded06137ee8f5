package crop

import (
	"fmt"
	"strings"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// CycleTable holds one crop type's eligible growing days (0..364) per surface.
type CycleTable struct {
	Crop string
	Days map[string][]int
}

// Calendar is the 365-day crop calendar of a building. Days[i][d] holds the
// crop(s) for day d on Surfaces[i]: empty, one name, or names joined with ","
// in rank order.
type Calendar struct {
	Surfaces []string
	Days     [][]string
}

// Len returns the number of surfaces.
func (c *Calendar) Len() int {
	return len(c.Surfaces)
}

// BuildCalendar merges the eligible-day lists of every crop into one calendar
// per surface, following each surface's ranking.
//
// In CalendarFirstDay mode the crop ranked n-th stamps only the first day of
// its eligible list; the rest of the list is not represented. This matches
// the reference crop profile output. CalendarAllDays stamps every eligible
// day. Days stamped by several crops list them best first.
//
// cycles[k] must belong to r.CropTypes[k].
func BuildCalendar(r *Ranking, cycles []CycleTable, mode bia.CalendarMode) (*Calendar, error) {
	if len(cycles) != len(r.CropTypes) {
		return nil, fmt.Errorf("%w: %d crop cycle tables for %d crop types",
			bia.ErrDataShape, len(cycles), len(r.CropTypes))
	}
	if mode != bia.CalendarFirstDay && mode != bia.CalendarAllDays {
		return nil, fmt.Errorf("%w: unknown calendar mode %q", bia.ErrConfiguration, mode)
	}

	cal := &Calendar{
		Surfaces: make([]string, 0, len(r.Surfaces)),
		Days:     make([][]string, 0, len(r.Surfaces)),
	}

	for _, sr := range r.Surfaces {
		stamps := make([][]string, bia.DaysInYear)

		for n, k := range sr.Order {
			days, ok := cycles[k].Days[sr.Surface]
			if !ok {
				return nil, fmt.Errorf("%w: crop %s has no growing cycle for surface %q",
					bia.ErrDataShape, r.CropTypes[k], sr.Surface)
			}
			if err := checkDays(r.CropTypes[k], sr.Surface, days); err != nil {
				return nil, err
			}
			if len(days) == 0 {
				continue
			}

			name := sr.Crops[n]
			if mode == bia.CalendarFirstDay {
				stamps[days[0]] = append(stamps[days[0]], name)
				continue
			}

			stamped := make(map[int]bool, len(days))
			for _, d := range days {
				if stamped[d] {
					continue
				}
				stamped[d] = true
				stamps[d] = append(stamps[d], name)
			}
		}

		row := make([]string, bia.DaysInYear)
		for d, names := range stamps {
			row[d] = strings.Join(names, ",")
		}
		cal.Surfaces = append(cal.Surfaces, sr.Surface)
		cal.Days = append(cal.Days, row)
	}

	return cal, nil
}

func checkDays(crop, surface string, days []int) error {
	for _, d := range days {
		if d < 0 || d >= bia.DaysInYear {
			return fmt.Errorf("%w: crop %s surface %q has day %d outside 0..%d",
				bia.ErrDataShape, crop, surface, d, bia.DaysInYear-1)
		}
	}
	return nil
}

// SelectSurfaces keeps only the calendar rows whose surface is in keep,
// preserving calendar order.
func SelectSurfaces(cal *Calendar, keep []string) *Calendar {
	want := make(map[string]bool, len(keep))
	for _, srf := range keep {
		want[srf] = true
	}

	out := &Calendar{}
	for i, srf := range cal.Surfaces {
		if !want[srf] {
			continue
		}
		out.Surfaces = append(out.Surfaces, srf)
		out.Days = append(out.Days, cal.Days[i])
	}
	return out
}
