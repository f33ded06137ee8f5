package crop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

var crops = []string{"Lettuce", "Tomato", "Bokchoy"}

// metricsFixture builds three crops over two surfaces. On srf1 Tomato has
// zero yield.
func metricsFixture() []MetricsTable {
	return []MetricsTable{
		{Crop: "Lettuce", Surfaces: []string{"srf0", "srf1"}, Rows: []Metrics{
			{Yield: 10, GHG: 3, Energy: 30, Water: 300, Capex: 100, Opex: 50},
			{Yield: 5, GHG: 1, Energy: 10, Water: 100, Capex: 50, Opex: 10},
		}},
		{Crop: "Tomato", Surfaces: []string{"srf0", "srf1"}, Rows: []Metrics{
			{Yield: 30, GHG: 1, Energy: 20, Water: 100, Capex: 300, Opex: 10},
			{Yield: 0, GHG: 2, Energy: 20, Water: 200, Capex: 40, Opex: 20},
		}},
		{Crop: "Bokchoy", Surfaces: []string{"srf0", "srf1"}, Rows: []Metrics{
			{Yield: 20, GHG: 2, Energy: 10, Water: 200, Capex: 200, Opex: 30},
			{Yield: 8, GHG: 3, Energy: 30, Water: 300, Capex: 60, Opex: 30},
		}},
	}
}

func TestScore(t *testing.T) {
	m := Metrics{Yield: 4, GHG: 1, Energy: 2, Water: 3, Capex: 8, Opex: 12}
	tests := []struct {
		o    bia.Objective
		want float64
	}{
		{bia.ObjectiveCropYield, 4},
		{bia.ObjectiveGHGEmission, 1},
		{bia.ObjectiveEnergyUse, 2},
		{bia.ObjectiveWaterUse, 3},
		{bia.ObjectiveAnnualisedCAPEX, 8},
		{bia.ObjectiveAnnualisedCAPEXPerKgYield, 2},
		{bia.ObjectiveAnnualOPEX, 12},
		{bia.ObjectiveAnnualOPEXPerKgYield, 3},
		{bia.ObjectiveAnnualCost, 20},
		{bia.ObjectiveAnnualCostPerKgYield, 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.o), func(t *testing.T) {
			got, err := Score(tt.o, m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Score("Beauty", m)
	assert.ErrorIs(t, err, bia.ErrConfiguration)
}

func TestScoreZeroYield(t *testing.T) {
	got, err := Score(bia.ObjectiveAnnualCostPerKgYield, Metrics{Capex: 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))

	got, err = Score(bia.ObjectiveAnnualOPEXPerKgYield, Metrics{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestRankBestFirst(t *testing.T) {
	tables := metricsFixture()
	for _, o := range bia.Objectives {
		t.Run(string(o), func(t *testing.T) {
			r, err := Rank(o, crops, tables)
			require.NoError(t, err)
			require.Len(t, r.Surfaces, 2)

			for _, sr := range r.Surfaces {
				best := sr.Scores[sr.Order[0]]
				if !finite(best) {
					continue
				}
				for _, s := range sr.Scores {
					if !finite(s) {
						continue
					}
					if o.Maximize() {
						assert.GreaterOrEqual(t, best, s)
					} else {
						assert.LessOrEqual(t, best, s)
					}
				}
				assert.Equal(t, crops[sr.Order[0]], sr.Crops[0])
			}
		})
	}
}

func TestRankOrders(t *testing.T) {
	tables := metricsFixture()
	tests := []struct {
		o     bia.Objective
		srf0  []string
		srf1  []string
		flag1 bool
	}{
		{bia.ObjectiveCropYield, []string{"Tomato", "Bokchoy", "Lettuce"}, []string{"Bokchoy", "Lettuce", "Tomato"}, false},
		{bia.ObjectiveGHGEmission, []string{"Tomato", "Bokchoy", "Lettuce"}, []string{"Lettuce", "Tomato", "Bokchoy"}, false},
		{bia.ObjectiveEnergyUse, []string{"Bokchoy", "Tomato", "Lettuce"}, []string{"Lettuce", "Tomato", "Bokchoy"}, false},
		// srf0 scores tie at 10 and keep crop order; srf1 Tomato has zero
		// yield, so its +Inf score sorts last and flags the surface
		{bia.ObjectiveAnnualisedCAPEXPerKgYield, []string{"Lettuce", "Tomato", "Bokchoy"}, []string{"Bokchoy", "Lettuce", "Tomato"}, true},
		{bia.ObjectiveAnnualCost, []string{"Lettuce", "Bokchoy", "Tomato"}, []string{"Lettuce", "Tomato", "Bokchoy"}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.o), func(t *testing.T) {
			r, err := Rank(tt.o, crops, tables)
			require.NoError(t, err)
			assert.Equal(t, tt.srf0, r.Surfaces[0].Crops)
			assert.Equal(t, tt.srf1, r.Surfaces[1].Crops)
			assert.False(t, r.Surfaces[0].NonFinite)
			assert.Equal(t, tt.flag1, r.Surfaces[1].NonFinite)
		})
	}
}

func TestRankStableTies(t *testing.T) {
	same := Metrics{Yield: 1, GHG: 1, Energy: 1, Water: 1, Capex: 1, Opex: 1}
	tables := []MetricsTable{
		{Surfaces: []string{"s"}, Rows: []Metrics{same}},
		{Surfaces: []string{"s"}, Rows: []Metrics{same}},
		{Surfaces: []string{"s"}, Rows: []Metrics{same}},
	}
	for _, o := range []bia.Objective{bia.ObjectiveCropYield, bia.ObjectiveWaterUse} {
		r, err := Rank(o, crops, tables)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, r.Surfaces[0].Order)
	}
}

func TestRankAllNonFinite(t *testing.T) {
	zero := Metrics{Capex: 1}
	tables := []MetricsTable{
		{Surfaces: []string{"s"}, Rows: []Metrics{zero}},
		{Surfaces: []string{"s"}, Rows: []Metrics{{}}},
	}
	r, err := Rank(bia.ObjectiveAnnualisedCAPEXPerKgYield, crops[:2], tables)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, r.Surfaces[0].Order)
	assert.True(t, r.Surfaces[0].NonFinite)
}

func TestRankSurfaceKeyedJoin(t *testing.T) {
	tables := metricsFixture()
	// reorder the second table; ranking must follow surface ids, not rows
	tables[1].Surfaces = []string{"srf1", "srf0"}
	tables[1].Rows[0], tables[1].Rows[1] = tables[1].Rows[1], tables[1].Rows[0]

	r, err := Rank(bia.ObjectiveCropYield, crops, tables)
	require.NoError(t, err)
	assert.Equal(t, "srf0", r.Surfaces[0].Surface)
	assert.Equal(t, []string{"Tomato", "Bokchoy", "Lettuce"}, r.Surfaces[0].Crops)
}

func TestRankErrors(t *testing.T) {
	t.Run("unknown objective", func(t *testing.T) {
		_, err := Rank("Taste", crops, metricsFixture())
		assert.ErrorIs(t, err, bia.ErrConfiguration)
	})
	t.Run("missing table", func(t *testing.T) {
		_, err := Rank(bia.ObjectiveCropYield, crops, metricsFixture()[:2])
		assert.ErrorIs(t, err, bia.ErrDataShape)
	})
	t.Run("missing surface", func(t *testing.T) {
		tables := metricsFixture()
		tables[2].Surfaces[1] = "srf9"
		_, err := Rank(bia.ObjectiveCropYield, crops, tables)
		assert.ErrorIs(t, err, bia.ErrDataShape)
	})
	t.Run("ragged table", func(t *testing.T) {
		tables := metricsFixture()
		tables[0].Rows = tables[0].Rows[:1]
		_, err := Rank(bia.ObjectiveCropYield, crops, tables)
		assert.ErrorIs(t, err, bia.ErrDataShape)
	})
}

func twoCropRanking() *Ranking {
	return &Ranking{
		Objective: bia.ObjectiveCropYield,
		CropTypes: []string{"Lettuce", "Tomato"},
		Surfaces: []SurfaceRank{
			{Surface: "srf0", Order: []int{0, 1}, Crops: []string{"Lettuce", "Tomato"}},
		},
	}
}

func TestBuildCalendarFirstDay(t *testing.T) {
	cycles := []CycleTable{
		{Crop: "Lettuce", Days: map[string][]int{"srf0": {10, 200}}},
		{Crop: "Tomato", Days: map[string][]int{"srf0": {20, 220}}},
	}
	cal, err := BuildCalendar(twoCropRanking(), cycles, bia.CalendarFirstDay)
	require.NoError(t, err)
	require.Equal(t, 1, cal.Len())
	require.Len(t, cal.Days[0], bia.DaysInYear)

	for d, cell := range cal.Days[0] {
		switch d {
		case 10:
			assert.Equal(t, "Lettuce", cell)
		case 20:
			assert.Equal(t, "Tomato", cell)
		default:
			assert.Empty(t, cell, "day %d", d)
		}
	}
}

func TestBuildCalendarRankOrderOnCollision(t *testing.T) {
	r := twoCropRanking()
	r.Surfaces[0].Order = []int{1, 0}
	r.Surfaces[0].Crops = []string{"Tomato", "Lettuce"}

	cycles := []CycleTable{
		{Crop: "Lettuce", Days: map[string][]int{"srf0": {42}}},
		{Crop: "Tomato", Days: map[string][]int{"srf0": {42, 50}}},
	}
	cal, err := BuildCalendar(r, cycles, bia.CalendarFirstDay)
	require.NoError(t, err)
	assert.Equal(t, "Tomato,Lettuce", cal.Days[0][42])
	assert.Empty(t, cal.Days[0][50])
}

func TestBuildCalendarAllDays(t *testing.T) {
	cycles := []CycleTable{
		{Crop: "Lettuce", Days: map[string][]int{"srf0": {10, 200, 200}}},
		{Crop: "Tomato", Days: map[string][]int{"srf0": {200, 220}}},
	}
	cal, err := BuildCalendar(twoCropRanking(), cycles, bia.CalendarAllDays)
	require.NoError(t, err)
	assert.Equal(t, "Lettuce", cal.Days[0][10])
	assert.Equal(t, "Lettuce,Tomato", cal.Days[0][200])
	assert.Equal(t, "Tomato", cal.Days[0][220])
}

func TestBuildCalendarEmptyCycle(t *testing.T) {
	cycles := []CycleTable{
		{Crop: "Lettuce", Days: map[string][]int{"srf0": {}}},
		{Crop: "Tomato", Days: map[string][]int{"srf0": {5}}},
	}
	cal, err := BuildCalendar(twoCropRanking(), cycles, bia.CalendarFirstDay)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", cal.Days[0][5])
}

func TestBuildCalendarErrors(t *testing.T) {
	tests := []struct {
		name   string
		cycles []CycleTable
		mode   bia.CalendarMode
		want   error
	}{
		{"day out of range", []CycleTable{
			{Days: map[string][]int{"srf0": {365}}},
			{Days: map[string][]int{"srf0": {1}}},
		}, bia.CalendarFirstDay, bia.ErrDataShape},
		{"negative day", []CycleTable{
			{Days: map[string][]int{"srf0": {1}}},
			{Days: map[string][]int{"srf0": {-1}}},
		}, bia.CalendarFirstDay, bia.ErrDataShape},
		{"missing surface", []CycleTable{
			{Days: map[string][]int{"srf0": {1}}},
			{Days: map[string][]int{}},
		}, bia.CalendarFirstDay, bia.ErrDataShape},
		{"table count", []CycleTable{
			{Days: map[string][]int{"srf0": {1}}},
		}, bia.CalendarFirstDay, bia.ErrDataShape},
		{"bad mode", []CycleTable{
			{Days: map[string][]int{"srf0": {1}}},
			{Days: map[string][]int{"srf0": {1}}},
		}, "weekly", bia.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCalendar(twoCropRanking(), tt.cycles, tt.mode)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSelectSurfaces(t *testing.T) {
	cal := &Calendar{
		Surfaces: []string{"a", "b", "c"},
		Days:     [][]string{{"x"}, {"y"}, {"z"}},
	}
	out := SelectSurfaces(cal, []string{"c", "a", "missing"})
	assert.Equal(t, []string{"a", "c"}, out.Surfaces)
	assert.Equal(t, [][]string{{"x"}, {"z"}}, out.Days)

	assert.Zero(t, SelectSurfaces(cal, nil).Len())
}
