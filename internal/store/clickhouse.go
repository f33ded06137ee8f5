// Package store publishes BIA outputs and records run outcomes.
//
// Backends:
//   - ClickHouse native protocol (ch-go): daily DLI rows, columnar insert
//   - ClickHouse database driver (clickhouse-go/v2): crop calendars, batch insert
//   - SQLite (modernc.org/sqlite): per-building run ledger
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Default table names.
const (
	DLITable     = "dli_daily"
	ProfileTable = "crop_profile"
)

// Options holds ClickHouse connection settings.
type Options struct {
	Addr     string // host:port, native protocol
	Database string
	User     string
	Password string
}

// DialNative opens a ch-go client for columnar inserts.
func DialNative(ctx context.Context, opt Options) (*ch.Client, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     opt.Addr,
		Database:    opt.Database,
		User:        opt.User,
		Password:    opt.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse dial %s: %w", opt.Addr, err)
	}
	return conn, nil
}

// Open opens a clickhouse-go connection pool and pings it.
func Open(ctx context.Context, opt Options) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opt.Addr},
		Auth: clickhouse.Auth{
			Database: opt.Database,
			Username: opt.User,
			Password: opt.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 300,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open %s: %w", opt.Addr, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", opt.Addr, err)
	}
	return conn, nil
}

// DLISchema returns the CREATE TABLE statement for the daily DLI table.
func DLISchema(tableFQN string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id      UUID,
    building    LowCardinality(String),
    surface     String,
    type        LowCardinality(String),
    orientation LowCardinality(String),
    n_floor     Int32,
    wall_type   LowCardinality(String),
    day         UInt16,
    dli         Float32
) ENGINE = MergeTree
ORDER BY (building, surface, day)`, tableFQN)
}

// ProfileSchema returns the CREATE TABLE statement for the crop profile
// table. Only non-empty calendar days are stored.
func ProfileSchema(tableFQN string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id   UUID,
    building LowCardinality(String),
    surface  String,
    day      UInt16,
    crops    String
) ENGINE = MergeTree
ORDER BY (building, surface, day)`, tableFQN)
}
