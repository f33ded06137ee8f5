package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
)

// ProfileRow is one non-empty calendar day.
type ProfileRow struct {
	Surface string
	Day     uint16
	Crops   string
}

// ProfileRows flattens a calendar to its non-empty days.
func ProfileRows(cal *crop.Calendar) []ProfileRow {
	var rows []ProfileRow
	for i, srf := range cal.Surfaces {
		for d, v := range cal.Days[i] {
			if v == "" {
				continue
			}
			rows = append(rows, ProfileRow{Surface: srf, Day: uint16(d), Crops: v})
		}
	}
	return rows
}

// ProfileWriter inserts crop calendars with clickhouse-go batches.
type ProfileWriter struct {
	conn     driver.Conn
	tableFQN string
	rows     uint64
}

// NewProfileWriter creates a writer for tableFQN (database.table).
func NewProfileWriter(conn driver.Conn, tableFQN string) *ProfileWriter {
	return &ProfileWriter{conn: conn, tableFQN: tableFQN}
}

// Write inserts the calendar of one building as one batch.
func (w *ProfileWriter) Write(ctx context.Context, runID uuid.UUID, building string, cal *crop.Calendar) error {
	rows := ProfileRows(cal)
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", w.tableFQN))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", w.tableFQN, err)
	}
	for _, r := range rows {
		if err := batch.Append(runID, building, r.Surface, r.Day, r.Crops); err != nil {
			batch.Abort()
			return fmt.Errorf("append %s/%s: %w", building, r.Surface, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s: %w", w.tableFQN, err)
	}
	w.rows += uint64(len(rows))
	return nil
}

// Rows returns the number of rows inserted so far.
func (w *ProfileWriter) Rows() uint64 {
	return w.rows
}
