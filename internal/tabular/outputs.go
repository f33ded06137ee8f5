package tabular

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
)

// dliMetaColumns precede the 365 day columns in the DLI daily output.
var dliMetaColumns = []string{
	"SURFACE", "BUILDING", "TYPE", "orientation", "Zcoor", "total_rad_Whm2", "n_floor", "wall_type",
}

// EmptyCell marks a calendar day with no crop in CSV output.
const EmptyCell = bia.EmptyDayMarker

func dayColumns() []string {
	cols := make([]string, bia.DaysInYear)
	for d := range cols {
		cols[d] = strconv.Itoa(d)
	}
	return cols
}

// checkAligned verifies that sensors and dli describe the same surfaces in
// the same order.
func checkAligned(sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	if len(sensors) != len(dli.Surfaces) || len(dli.Values) != len(dli.Surfaces) {
		return fmt.Errorf("%w: %d sensors, %d DLI rows", bia.ErrDataShape, len(sensors), len(dli.Surfaces))
	}
	for i := range sensors {
		if sensors[i].Surface != dli.Surfaces[i] {
			return fmt.Errorf("%w: sensor %q aligned with DLI row %q",
				bia.ErrDataShape, sensors[i].Surface, dli.Surfaces[i])
		}
		if len(dli.Values[i]) != bia.DaysInYear {
			return fmt.Errorf("%w: DLI row %q has %d days", bia.ErrDataShape, dli.Surfaces[i], len(dli.Values[i]))
		}
	}
	return nil
}

// WriteDLI writes the DLI daily table to path in the given format.
func WriteDLI(path string, format bia.OutputFormat, sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	if err := checkAligned(sensors, dli); err != nil {
		return err
	}
	if format == bia.FormatParquet {
		return writeDLIParquet(path, sensors, dli)
	}
	return writeDLICSV(path, sensors, dli)
}

func writeDLICSV(path string, sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	out, err := createOutput(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	header := append(append([]string(nil), dliMetaColumns...), dayColumns()...)
	if err := w.Write(header); err != nil {
		out.Close()
		return err
	}

	record := make([]string, len(header))
	for i, s := range sensors {
		record[0] = s.Surface
		record[1] = s.Building
		record[2] = string(s.Type)
		record[3] = string(s.Orientation)
		record[4] = formatFloat(s.Z)
		record[5] = formatFloat(s.TotalRad)
		record[6] = strconv.Itoa(s.Floor)
		record[7] = s.WallZone.String()
		for d, v := range dli.Values[i] {
			record[len(dliMetaColumns)+d] = formatFloat(v)
		}
		if err := w.Write(record); err != nil {
			out.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadDLI reads a DLI daily table written by WriteDLI. The format is taken
// from the file extension.
func ReadDLI(path string) ([]bia.SensorRecord, *solar.DailyDLI, error) {
	if strings.HasSuffix(path, ".parquet") {
		return readDLIParquet(path)
	}
	return readDLICSV(path)
}

func readDLICSV(path string) ([]bia.SensorRecord, *solar.DailyDLI, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	meta, err := t.require(dliMetaColumns...)
	if err != nil {
		return nil, nil, err
	}
	days, err := t.require(dayColumns()...)
	if err != nil {
		return nil, nil, err
	}

	sensors := make([]bia.SensorRecord, 0, len(t.rows))
	dli := &solar.DailyDLI{}
	for i, row := range t.rows {
		s, err := dliRecord(
			cell(row, meta[0]), cell(row, meta[1]), cell(row, meta[2]), cell(row, meta[3]), cell(row, meta[7]))
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		if s.Z, err = t.float(row, meta[4], i, "Zcoor"); err != nil {
			return nil, nil, err
		}
		if s.TotalRad, err = t.float(row, meta[5], i, "total_rad_Whm2"); err != nil {
			return nil, nil, err
		}
		floor, err := t.float(row, meta[6], i, "n_floor")
		if err != nil {
			return nil, nil, err
		}
		s.Floor = int(floor)

		values := make([]float64, bia.DaysInYear)
		for d, col := range days {
			if values[d], err = t.float(row, col, i, strconv.Itoa(d)); err != nil {
				return nil, nil, err
			}
		}

		sensors = append(sensors, s)
		dli.Surfaces = append(dli.Surfaces, s.Surface)
		dli.Values = append(dli.Values, values)
	}
	return sensors, dli, nil
}

func dliRecord(surface, building, typ, orientation, wallType string) (bia.SensorRecord, error) {
	s := bia.SensorRecord{Surface: surface, Building: building}
	var err error
	if s.Type, err = bia.ParseSurfaceType(typ); err != nil {
		return s, err
	}
	if s.Orientation, err = bia.ParseOrientation(orientation); err != nil {
		return s, err
	}
	if s.WallZone, err = bia.ParseWallZone(wallType); err != nil {
		return s, err
	}
	return s, nil
}

// WriteProfile writes a crop calendar to path in the given format. Empty
// days are written as EmptyCell in CSV output.
func WriteProfile(path string, format bia.OutputFormat, cal *crop.Calendar) error {
	if format == bia.FormatParquet {
		return writeProfileParquet(path, cal)
	}

	out, err := createOutput(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"SURFACE"}, dayColumns()...)); err != nil {
		out.Close()
		return err
	}

	record := make([]string, 1+bia.DaysInYear)
	for i, srf := range cal.Surfaces {
		record[0] = srf
		for d, v := range cal.Days[i] {
			if v == "" {
				v = EmptyCell
			}
			record[1+d] = v
		}
		if err := w.Write(record); err != nil {
			out.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadProfile reads a crop calendar written by WriteProfile.
func ReadProfile(path string) (*crop.Calendar, error) {
	if strings.HasSuffix(path, ".parquet") {
		return readProfileParquet(path)
	}

	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	srf, err := t.require("SURFACE")
	if err != nil {
		return nil, err
	}
	days, err := t.require(dayColumns()...)
	if err != nil {
		return nil, err
	}

	cal := &crop.Calendar{}
	for _, row := range t.rows {
		values := make([]string, bia.DaysInYear)
		for d, col := range days {
			if v := cell(row, col); v != EmptyCell {
				values[d] = v
			}
		}
		cal.Surfaces = append(cal.Surfaces, cell(row, srf[0]))
		cal.Days = append(cal.Days, values)
	}
	return cal, nil
}
