// Package series loads the per-county daily case time series.
//
// The default metric columns must be numeric. Any other column holding a
// non-numeric cell, such as a state abbreviation, is dropped from every row
// and logged once.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/county-choropleth/internal/domain"
)

// Column names with special meaning. Every other column is a metric.
const (
	ColFIPS   = "fips"
	ColDay    = "Day"
	ColDate   = "Date"
	ColCounty = "County"
)

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// LoadCSV reads the series from a CSV file on disk.
func LoadCSV(path string, logger *slog.Logger) ([]domain.DailyMetric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open series: %w", domain.ErrMissingSourceData, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f, logger)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses a header-first CSV stream into daily metric rows.
// Empty and NaN numeric cells become 0.
func ReadCSV(r io.Reader, logger *slog.Logger) ([]domain.DailyMetric, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrMissingSourceData, err)
	}
	cols := indexHeader(header)

	fipsIdx, ok := cols[ColFIPS]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q column", domain.ErrMissingSourceData, ColFIPS)
	}
	dayIdx, ok := cols[ColDay]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q column", domain.ErrMissingSourceData, ColDay)
	}
	dateIdx, hasDate := cols[ColDate]
	countyIdx, hasCounty := cols[ColCounty]

	var out []domain.DailyMetric
	textCols := map[string]bool{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrMissingSourceData, err)
		}

		fips, err := parseInt(rec[fipsIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrMissingSourceData, line, ColFIPS, err)
		}
		day, err := parseInt(rec[dayIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrMissingSourceData, line, ColDay, err)
		}

		m := domain.DailyMetric{
			FIPS:   fips,
			Day:    day,
			Values: make(map[string]float64, len(header)),
		}
		if hasDate {
			m.Date, err = parseDate(rec[dateIdx])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrMissingSourceData, line, ColDate, err)
			}
		}
		if hasCounty {
			m.County = strings.TrimSpace(rec[countyIdx])
		}

		for i, name := range header {
			if i == fipsIdx || i == dayIdx || (hasDate && i == dateIdx) || (hasCounty && i == countyIdx) {
				continue
			}
			// Dataframe exports prepend an unnamed index column.
			if name == "" || strings.HasPrefix(name, "Unnamed:") {
				continue
			}
			if textCols[name] {
				continue
			}
			v, err := parseFloat(rec[i])
			if err != nil {
				if slices.Contains(domain.DefaultFields, name) {
					return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrMissingSourceData, line, name, err)
				}
				textCols[name] = true
				logger.Warn("skipping non-numeric series column", "column", name, "line", line, "value", rec[i])
				continue
			}
			m.Values[name] = v
		}

		out = append(out, m)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: series has no rows", domain.ErrMissingSourceData)
	}
	for name := range textCols {
		for i := range out {
			delete(out[i].Values, name)
		}
	}
	return out, nil
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// parseInt accepts integral floats ("13001.0") as written by dataframe exports.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, nil
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
