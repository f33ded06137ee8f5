package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
)

// ReadBatch is the number of rows pulled from a Parquet reader per call.
const ReadBatch = 1000

// DLIRow matches the Parquet schema of the DLI daily output.
type DLIRow struct {
	Surface     string    `parquet:"surface"`
	Building    string    `parquet:"building"`
	Type        string    `parquet:"type"`
	Orientation string    `parquet:"orientation"`
	Zcoor       float64   `parquet:"zcoor"`
	TotalRad    float64   `parquet:"total_rad_whm2"`
	Floor       int32     `parquet:"n_floor"`
	WallType    string    `parquet:"wall_type"`
	DLI         []float64 `parquet:"dli_daily,list"`
}

// ProfileRow matches the Parquet schema of the crop profile output. Crops[d]
// is empty for a day without crop.
type ProfileRow struct {
	Surface string   `parquet:"surface"`
	Crops   []string `parquet:"crops,list"`
}

func writeDLIParquet(path string, sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	rows := make([]DLIRow, len(sensors))
	for i, s := range sensors {
		rows[i] = DLIRow{
			Surface:     s.Surface,
			Building:    s.Building,
			Type:        string(s.Type),
			Orientation: string(s.Orientation),
			Zcoor:       s.Z,
			TotalRad:    s.TotalRad,
			Floor:       int32(s.Floor),
			WallType:    s.WallZone.String(),
			DLI:         dli.Values[i],
		}
	}
	return writeParquet(path, rows)
}

func writeProfileParquet(path string, cal *crop.Calendar) error {
	rows := make([]ProfileRow, cal.Len())
	for i, srf := range cal.Surfaces {
		rows[i] = ProfileRow{Surface: srf, Crops: cal.Days[i]}
	}
	return writeParquet(path, rows)
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// ReadParquet reads every row of a Parquet file written by this package.
func ReadParquet[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	var out []T
	for {
		buf := make([]T, ReadBatch)
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

func readDLIParquet(path string) ([]bia.SensorRecord, *solar.DailyDLI, error) {
	rows, err := ReadParquet[DLIRow](path)
	if err != nil {
		return nil, nil, err
	}

	sensors := make([]bia.SensorRecord, 0, len(rows))
	dli := &solar.DailyDLI{}
	for _, r := range rows {
		s, err := dliRecord(r.Surface, r.Building, r.Type, r.Orientation, r.WallType)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(r.DLI) != bia.DaysInYear {
			return nil, nil, fmt.Errorf("%w: %s: surface %s has %d days",
				bia.ErrDataShape, path, r.Surface, len(r.DLI))
		}
		s.Z = r.Zcoor
		s.TotalRad = r.TotalRad
		s.Floor = int(r.Floor)

		sensors = append(sensors, s)
		dli.Surfaces = append(dli.Surfaces, s.Surface)
		dli.Values = append(dli.Values, r.DLI)
	}
	return sensors, dli, nil
}

func readProfileParquet(path string) (*crop.Calendar, error) {
	rows, err := ReadParquet[ProfileRow](path)
	if err != nil {
		return nil, err
	}

	cal := &crop.Calendar{}
	for _, r := range rows {
		if len(r.Crops) != bia.DaysInYear {
			return nil, fmt.Errorf("%w: %s: surface %s has %d days",
				bia.ErrDataShape, path, r.Surface, len(r.Crops))
		}
		cal.Surfaces = append(cal.Surfaces, r.Surface)
		cal.Days = append(cal.Days, r.Crops)
	}
	return cal, nil
}
