package ingestion

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"regime-tier-lab/internal/domain"
)

// ErrMalformedRow is returned for a row that cannot be parsed into a bar.
var ErrMalformedRow = errors.New("malformed price row")

// CSVSource reads <dir>/<SYMBOL>.csv files with a
// date,open,high,low,close,volume header (any column order, case-insensitive).
type CSVSource struct {
	dir string
}

// NewCSVSource creates a CSV source over a directory.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Fetch reads the symbol's file.
func (s *CSVSource) Fetch(_ context.Context, symbol string) ([]domain.PriceBar, error) {
	f, err := os.Open(filepath.Join(s.dir, symbol+".csv"))
	if err != nil {
		return nil, fmt.Errorf("open %s csv: %w", symbol, err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// ParseCSV parses bars from CSV. Only date and close are required columns.
func ParseCSV(r io.Reader) ([]domain.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", ErrMalformedRow, required)
		}
	}

	var bars []domain.PriceBar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		b, err := parseRecord(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, b)
	}

	return bars, nil
}

func parseRecord(cols map[string]int, rec []string) (domain.PriceBar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(name string) (float64, error) {
		v := field(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrMalformedRow, name, v)
		}
		return f, nil
	}

	date, err := domain.ParseDate(field("date"))
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	b := domain.PriceBar{Date: date}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open},
		{"high", &b.High},
		{"low", &b.Low},
		{"close", &b.Close},
		{"volume", &b.Volume},
	} {
		if *f.dst, err = number(f.name); err != nil {
			return domain.PriceBar{}, err
		}
	}
	return b, nil
}

// JSONSource reads <dir>/<SYMBOL>.json files holding an array of
// {"date","open","high","low","close","volume"} objects.
type JSONSource struct {
	dir string
}

// NewJSONSource creates a JSON source over a directory.
func NewJSONSource(dir string) *JSONSource {
	return &JSONSource{dir: dir}
}

// Fetch reads the symbol's file.
func (s *JSONSource) Fetch(_ context.Context, symbol string) ([]domain.PriceBar, error) {
	f, err := os.Open(filepath.Join(s.dir, symbol+".json"))
	if err != nil {
		return nil, fmt.Errorf("open %s json: %w", symbol, err)
	}
	defer f.Close()

	return ParseJSON(f)
}

type jsonBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ParseJSON parses bars from a JSON array.
func ParseJSON(r io.Reader) ([]domain.PriceBar, error) {
	var raw []jsonBar
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json bars: %w", err)
	}

	bars := make([]domain.PriceBar, 0, len(raw))
	for i, jb := range raw {
		date, err := domain.ParseDate(jb.Date)
		if err != nil {
			return nil, fmt.Errorf("json bar %d: %w: %w", i, ErrMalformedRow, err)
		}
		bars = append(bars, domain.PriceBar{
			Date:   date,
			Open:   jb.Open,
			High:   jb.High,
			Low:    jb.Low,
			Close:  jb.Close,
			Volume: jb.Volume,
		})
	}
	return bars, nil
}
