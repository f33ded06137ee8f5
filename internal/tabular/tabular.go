// Package tabular reads the per-building input tables of the BIA tools and
// writes their outputs.
//
// Supported formats:
//   - Radiation: JSON object of surface id -> hourly series (.json, .json.gz)
//   - Metadata, zone, crop metrics and crop cycles: CSV with header
//   - Outputs: CSV, gzip CSV (.csv.gz) or Parquet
//
// Gzip inputs are decompressed in parallel with pgzip; gzip outputs use the
// klauspost gzip writer.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// ReadBufferSize is the pgzip block size used for compressed inputs.
const ReadBufferSize = 256 * 1024

// openInput opens path for reading, transparently decompressing .gz files.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReaderN(f, ReadBufferSize, runtime.NumCPU())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &gzipReadCloser{Reader: gz, file: f}, nil
}

type gzipReadCloser struct {
	*pgzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	g.Reader.Close()
	return g.file.Close()
}

// createOutput creates path for writing. A .gz suffix wraps the file in a
// gzip writer; closing the returned writer flushes and closes both.
func createOutput(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	return &gzipWriteCloser{Writer: gzip.NewWriter(f), file: f}, nil
}

type gzipWriteCloser struct {
	*gzip.Writer
	file *os.File
}

func (g *gzipWriteCloser) Close() error {
	if err := g.Writer.Close(); err != nil {
		g.file.Close()
		return err
	}
	return g.file.Close()
}

// =============================================================================
// CSV helpers
// =============================================================================

// table is a CSV file held in memory with its header indexed by name.
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", bia.ErrDataShape, path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no header", bia.ErrDataShape, path)
	}

	t := &table{path: path, header: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range records[0] {
		t.header[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return t, nil
}

// require returns the column indices of names, failing on the first missing
// column.
func (t *table) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.header[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", bia.ErrDataShape, t.path, name)
		}
		idx[i] = col
	}
	return idx, nil
}

// cell returns row[col] trimmed, or "" when the row is short.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (t *table) float(row []string, col, line int, name string) (float64, error) {
	v, err := strconv.ParseFloat(cell(row, col), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d: column %s: %v", bia.ErrDataShape, t.path, line+2, name, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
