package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
)

// DLIBatchRows is the row count at which DLIWriter flushes.
const DLIBatchRows = 500_000

// DLIBatch holds column data for native insert, one row per surface and day.
type DLIBatch struct {
	RunID       *proto.ColUUID
	Building    *proto.ColStr
	Surface     *proto.ColStr
	Type        *proto.ColStr
	Orientation *proto.ColStr
	Floor       *proto.ColInt32
	WallType    *proto.ColStr
	Day         *proto.ColUInt16
	DLI         *proto.ColFloat32
}

func NewDLIBatch() *DLIBatch {
	return &DLIBatch{
		RunID:       new(proto.ColUUID),
		Building:    new(proto.ColStr),
		Surface:     new(proto.ColStr),
		Type:        new(proto.ColStr),
		Orientation: new(proto.ColStr),
		Floor:       new(proto.ColInt32),
		WallType:    new(proto.ColStr),
		Day:         new(proto.ColUInt16),
		DLI:         new(proto.ColFloat32),
	}
}

func (b *DLIBatch) Reset() {
	b.RunID.Reset()
	b.Building.Reset()
	b.Surface.Reset()
	b.Type.Reset()
	b.Orientation.Reset()
	b.Floor.Reset()
	b.WallType.Reset()
	b.Day.Reset()
	b.DLI.Reset()
}

func (b *DLIBatch) Len() int {
	return b.Day.Rows()
}

func (b *DLIBatch) Input() proto.Input {
	return proto.Input{
		{Name: "run_id", Data: b.RunID},
		{Name: "building", Data: b.Building},
		{Name: "surface", Data: b.Surface},
		{Name: "type", Data: b.Type},
		{Name: "orientation", Data: b.Orientation},
		{Name: "n_floor", Data: b.Floor},
		{Name: "wall_type", Data: b.WallType},
		{Name: "day", Data: b.Day},
		{Name: "dli", Data: b.DLI},
	}
}

// AddBuilding appends every day of every surface of one building.
func (b *DLIBatch) AddBuilding(runID uuid.UUID, sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	if len(sensors) != len(dli.Values) {
		return fmt.Errorf("%w: %d sensors, %d DLI rows", bia.ErrDataShape, len(sensors), len(dli.Values))
	}
	for i, s := range sensors {
		wallType := s.WallZone.String()
		for day, v := range dli.Values[i] {
			b.RunID.Append(runID)
			b.Building.Append(s.Building)
			b.Surface.Append(s.Surface)
			b.Type.Append(string(s.Type))
			b.Orientation.Append(string(s.Orientation))
			b.Floor.Append(int32(s.Floor))
			b.WallType.Append(wallType)
			b.Day.Append(uint16(day))
			b.DLI.Append(float32(v))
		}
	}
	return nil
}

// DLIWriter inserts daily DLI rows through the native protocol.
type DLIWriter struct {
	conn     *ch.Client
	tableFQN string
	batch    *DLIBatch
	rows     uint64
}

// NewDLIWriter creates a writer for tableFQN (database.table).
func NewDLIWriter(conn *ch.Client, tableFQN string) *DLIWriter {
	return &DLIWriter{conn: conn, tableFQN: tableFQN, batch: NewDLIBatch()}
}

// Write buffers one building and flushes when the batch is full.
func (w *DLIWriter) Write(ctx context.Context, runID uuid.UUID, sensors []bia.SensorRecord, dli *solar.DailyDLI) error {
	if err := w.batch.AddBuilding(runID, sensors, dli); err != nil {
		return err
	}
	if w.batch.Len() >= DLIBatchRows {
		return w.Flush(ctx)
	}
	return nil
}

// Flush inserts buffered rows.
func (w *DLIWriter) Flush(ctx context.Context) error {
	n := w.batch.Len()
	if n == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (run_id, building, surface, type, orientation, n_floor, wall_type, day, dli) VALUES", w.tableFQN)
	if err := w.conn.Do(ctx, ch.Query{Body: query, Input: w.batch.Input()}); err != nil {
		return fmt.Errorf("insert %s: %w", w.tableFQN, err)
	}
	w.rows += uint64(n)
	w.batch.Reset()
	return nil
}

// Rows returns the number of rows inserted so far.
func (w *DLIWriter) Rows() uint64 {
	return w.rows
}
