package tabular

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
)

// ReadRadiation reads a building's hourly sensor radiation.
//
// The file is a JSON object keyed by surface id. Each value is either an
// array of hourly values or an object keyed by hour index (pandas
// "columns" orientation). Column order follows the file.
func ReadRadiation(path string) (solar.RadiationTable, error) {
	rc, err := openInput(path)
	if err != nil {
		return solar.RadiationTable{}, err
	}
	defer rc.Close()

	rad, err := DecodeRadiation(rc)
	if err != nil {
		return solar.RadiationTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return rad, nil
}

// DecodeRadiation decodes the radiation JSON document from r.
func DecodeRadiation(r io.Reader) (solar.RadiationTable, error) {
	var rad solar.RadiationTable
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return rad, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return rad, fmt.Errorf("%w: %v", bia.ErrDataShape, err)
		}
		id, ok := tok.(string)
		if !ok {
			return rad, fmt.Errorf("%w: expected surface id, got %v", bia.ErrDataShape, tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return rad, fmt.Errorf("%w: surface %s: %v", bia.ErrDataShape, id, err)
		}
		series, err := decodeSeries(raw)
		if err != nil {
			return rad, fmt.Errorf("%w: surface %s: %v", bia.ErrDataShape, id, err)
		}

		rad.Surfaces = append(rad.Surfaces, id)
		rad.Series = append(rad.Series, series)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return rad, err
	}

	return rad, rad.Validate()
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", bia.ErrDataShape, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", bia.ErrDataShape, want, tok)
	}
	return nil
}

func decodeSeries(raw json.RawMessage) ([]float64, error) {
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var byHour map[string]float64
	if err := json.Unmarshal(raw, &byHour); err != nil {
		return nil, fmt.Errorf("want array or object of numbers: %v", err)
	}

	hours := make([]int, 0, len(byHour))
	for k := range byHour {
		h, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad hour index %q", k)
		}
		hours = append(hours, h)
	}
	sort.Ints(hours)

	series := make([]float64, len(hours))
	for i, h := range hours {
		if h != i {
			return nil, fmt.Errorf("hour index %d missing", i)
		}
		series[i] = byHour[strconv.Itoa(h)]
	}
	return series, nil
}
