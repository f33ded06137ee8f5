package tabular

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

// =============================================================================
// Radiation
// =============================================================================

func TestDecodeRadiationKeepsColumnOrder(t *testing.T) {
	doc := `{"srf2": [1, 2, 3], "srf0": [4, 5, 6], "srf1": [7, 8, 9]}`
	rad, err := DecodeRadiation(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"srf2", "srf0", "srf1"}, rad.Surfaces)
	assert.Equal(t, []float64{4, 5, 6}, rad.Series[1])
	assert.Equal(t, 3, rad.Hours())
}

func TestDecodeRadiationHourObjects(t *testing.T) {
	doc := `{"srf0": {"1": 2.5, "0": 1.5, "2": 3.5}}`
	rad, err := DecodeRadiation(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, rad.Series[0])
}

func TestDecodeRadiationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2, 3]`},
		{"string values", `{"srf0": ["a", "b"]}`},
		{"ragged", `{"srf0": [1, 2], "srf1": [1]}`},
		{"missing hour", `{"srf0": {"0": 1, "2": 3}}`},
		{"bad hour", `{"srf0": {"x": 1}}`},
		{"truncated", `{"srf0": [1, 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRadiation(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, bia.ErrDataShape)
		})
	}
}

func TestReadRadiationGzip(t *testing.T) {
	dir := t.TempDir()
	path := writeGzip(t, dir, "B1000_radiation.json.gz", `{"srf0": [1, 2], "srf1": [3, 4]}`)

	rad, err := ReadRadiation(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"srf0", "srf1"}, rad.Surfaces)
	assert.Equal(t, []float64{3, 4}, rad.Series[1])
}

// =============================================================================
// Input tables
// =============================================================================

func TestReadSensorMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "B1000_geometry.csv",
		"\ufeffSURFACE,TYPE,orientation,Zcoor\n"+
			"srf0,roofs,top,12.0\n"+
			"srf1,walls,north,3.5\n"+
			"srf2,windows,north,4\n")

	sensors, err := ReadSensorMetadata(path, "B1000")
	require.NoError(t, err)
	require.Len(t, sensors, 3)

	assert.Equal(t, bia.SensorRecord{
		Surface: "srf1", Building: "B1000", Type: bia.SurfaceWall, Orientation: bia.North, Z: 3.5,
	}, sensors[1])
	assert.Equal(t, bia.SurfaceRoof, sensors[0].Type)
	assert.Equal(t, bia.SurfaceWindow, sensors[2].Type)
}

func TestReadSensorMetadataErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing column", "SURFACE,TYPE,Zcoor\nsrf0,roofs,1\n"},
		{"bad type", "SURFACE,TYPE,orientation,Zcoor\nsrf0,floor,top,1\n"},
		{"bad orientation", "SURFACE,TYPE,orientation,Zcoor\nsrf0,walls,up,1\n"},
		{"bad z", "SURFACE,TYPE,orientation,Zcoor\nsrf0,walls,north,high\n"},
		{"empty surface", "SURFACE,TYPE,orientation,Zcoor\n,walls,north,1\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "geometry.csv", tt.content)
			_, err := ReadSensorMetadata(path, "B1000")
			assert.ErrorIs(t, err, bia.ErrDataShape)
		})
	}
}

func TestReadZone(t *testing.T) {
	path := writeFile(t, t.TempDir(), "zone.csv",
		"Name,height_ag,floors_ag,REFERENCE\n"+
			"B1000,12,4,x\n"+
			"B1001,,3,x\n"+
			"B1002,9,2.5,x\n")

	zone, err := ReadZone(path)
	require.NoError(t, err)
	require.Len(t, zone, 3)

	assert.Equal(t, bia.Geometry{Building: "B1000", HeightAG: 12, FloorsAG: 4}, zone[0])
	assert.True(t, math.IsNaN(zone[1].HeightAG))
	assert.Equal(t, 3, zone[1].FloorsAG)
	assert.Equal(t, 0, zone[2].FloorsAG)
}

func TestReadMetrics(t *testing.T) {
	header := strings.Join([]string{"SURFACE", ColYield, ColGHG, ColEnergy, ColWater, ColCapex, ColOpex}, ",")
	path := writeFile(t, t.TempDir(), "B1000_BIA_metrics_Lettuce.csv",
		header+"\nsrf0,10,1,2,3,4,5\nsrf1,20,6,7,8,9,10\n")

	mt, err := ReadMetrics(path, "Lettuce")
	require.NoError(t, err)

	assert.Equal(t, "Lettuce", mt.Crop)
	assert.Equal(t, []string{"srf0", "srf1"}, mt.Surfaces)
	assert.Equal(t, crop.Metrics{Yield: 20, GHG: 6, Energy: 7, Water: 8, Capex: 9, Opex: 10}, mt.Rows[1])
}

func TestReadMetricsMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metrics.csv", "SURFACE,"+ColYield+"\nsrf0,1\n")
	_, err := ReadMetrics(path, "Lettuce")
	assert.ErrorIs(t, err, bia.ErrDataShape)
}

func TestReadCycles(t *testing.T) {
	path := writeFile(t, t.TempDir(), "B1000_BIA_cycle_Lettuce.csv",
		"SURFACE,days\nsrf0,10;200\nsrf1,\nsrf2,[5;6;7]\n")

	ct, err := ReadCycles(path, "Lettuce")
	require.NoError(t, err)

	assert.Equal(t, []int{10, 200}, ct.Days["srf0"])
	assert.Equal(t, []int{}, ct.Days["srf1"])
	assert.Equal(t, []int{5, 6, 7}, ct.Days["srf2"])
}

func TestReadCyclesDuplicateSurface(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.csv", "SURFACE,days\nsrf0,1\nsrf0,2\n")
	_, err := ReadCycles(path, "Lettuce")
	assert.ErrorIs(t, err, bia.ErrDataShape)
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", []int{}},
		{"10", []int{10}},
		{"10;200", []int{10, 200}},
		{"[1, 2, 3]", []int{1, 2, 3}},
		{" 4 5 ", []int{4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDays(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDays("1;x")
	assert.ErrorIs(t, err, bia.ErrDataShape)
}

// =============================================================================
// Outputs
// =============================================================================

func dliFixture() ([]bia.SensorRecord, *solar.DailyDLI) {
	sensors := []bia.SensorRecord{
		{Surface: "srf0", Building: "B1000", Type: bia.SurfaceRoof, Orientation: bia.Top,
			Z: 12, TotalRad: 876000, Floor: 0, WallZone: bia.WallZoneNonWall},
		{Surface: "srf1", Building: "B1000", Type: bia.SurfaceWall, Orientation: bia.North,
			Z: 3.25, TotalRad: 438000.5, Floor: 1, WallZone: bia.WallZoneLower},
	}
	dli := &solar.DailyDLI{Surfaces: []string{"srf0", "srf1"}}
	for i := range sensors {
		values := make([]float64, bia.DaysInYear)
		for d := range values {
			values[d] = float64(i+1) * 1.25
		}
		dli.Values = append(dli.Values, values)
	}
	return sensors, dli
}

func TestDLIRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		format bia.OutputFormat
	}{
		{"csv", "B1000_DLI_daily.csv", bia.FormatCSV},
		{"csv.gz", "B1000_DLI_daily.csv.gz", bia.FormatCSVGzip},
		{"parquet", "B1000_DLI_daily.parquet", bia.FormatParquet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sensors, dli := dliFixture()
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, WriteDLI(path, tt.format, sensors, dli))

			gotSensors, gotDLI, err := ReadDLI(path)
			require.NoError(t, err)

			assert.Equal(t, sensors, gotSensors)
			assert.Equal(t, dli.Surfaces, gotDLI.Surfaces)
			assert.InDeltaSlice(t, dli.Values[1], gotDLI.Values[1], 1e-9)
		})
	}
}

func TestWriteDLICSVLayout(t *testing.T) {
	sensors, dli := dliFixture()
	path := filepath.Join(t.TempDir(), "B1000_DLI_daily.csv")
	require.NoError(t, WriteDLI(path, bia.FormatCSV, sensors, dli))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], ",")
	assert.Equal(t, dliMetaColumns, header[:len(dliMetaColumns)])
	assert.Equal(t, "0", header[len(dliMetaColumns)])
	assert.Equal(t, "364", header[len(header)-1])
	assert.True(t, strings.HasPrefix(lines[2], "srf1,B1000,wall,north,3.25,438000.50,1,lower,2.50,"))
}

func TestWriteDLIMisaligned(t *testing.T) {
	sensors, dli := dliFixture()
	dli.Surfaces[0], dli.Surfaces[1] = dli.Surfaces[1], dli.Surfaces[0]

	err := WriteDLI(filepath.Join(t.TempDir(), "x.csv"), bia.FormatCSV, sensors, dli)
	assert.ErrorIs(t, err, bia.ErrDataShape)
}

func calendarFixture() *crop.Calendar {
	cal := &crop.Calendar{Surfaces: []string{"srf0", "srf1"}}
	for range cal.Surfaces {
		cal.Days = append(cal.Days, make([]string, bia.DaysInYear))
	}
	cal.Days[0][10] = "Lettuce"
	cal.Days[0][20] = "Tomato"
	cal.Days[1][5] = "Lettuce,Bokchoy"
	return cal
}

func TestProfileRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		format bia.OutputFormat
	}{
		{"csv", "B1000_BIA_crop_profile.csv", bia.FormatCSV},
		{"csv.gz", "B1000_BIA_crop_profile.csv.gz", bia.FormatCSVGzip},
		{"parquet", "B1000_BIA_crop_profile.parquet", bia.FormatParquet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := calendarFixture()
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, WriteProfile(path, tt.format, cal))

			got, err := ReadProfile(path)
			require.NoError(t, err)
			assert.Equal(t, cal, got)
		})
	}
}

func TestWriteProfileEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.csv")
	require.NoError(t, WriteProfile(path, bia.FormatCSV, calendarFixture()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)

	row := strings.Split(lines[1], ",")
	require.Len(t, row, 1+bia.DaysInYear)
	assert.Equal(t, "srf0", row[0])
	assert.Equal(t, "0", row[1])
	assert.Equal(t, "Lettuce", row[11])
	assert.Equal(t, "Tomato", row[21])

	// "Lettuce,Bokchoy" is quoted by the CSV writer
	assert.Contains(t, lines[2], `"Lettuce,Bokchoy"`)
}
