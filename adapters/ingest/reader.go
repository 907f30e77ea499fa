// Package ingest reads wide tabular files into named time series: header
// row, first column a timestamp, every remaining column one signal. It
// handles both the survey's Excel workbooks and exported CSVs.
package ingest

import (
	"encoding/csv"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"biophony/domain/series"
	"biophony/internal/errors"
	"biophony/ports"
)

// timestampLayouts are tried in order; the first successful parse wins.
// Numeric cells that fail every layout are tried as Excel serial dates.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04",
}

// Reader loads xlsx or csv files, selected by extension.
type Reader struct{}

// NewReader creates a tabular series reader
func NewReader() ports.SeriesReader {
	return &Reader{}
}

// ReadFile reads one file into a map of named series. Each series is
// sorted by timestamp with duplicate timestamps keeping the first
// occurrence; non-numeric and blank cells become NaN so downstream
// aggregation rules see them as missing rather than zero.
func (r *Reader) ReadFile(path string) (map[string]*series.TimeSeries, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		return nil, errors.IngestFailed(path, err)
	}

	var rows [][]string
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		rows, err = readCSVRows(path)
	} else {
		rows, err = readExcelRows(path)
	}
	if err != nil {
		return nil, errors.IngestFailed(path, err)
	}

	result, skipped, err := processRows(rows)
	if err != nil {
		return nil, errors.IngestFailed(path, err)
	}

	log.Printf("[Ingest] %s: %d signals, %d skipped rows, read in %d ms",
		filepath.Base(path), len(result), skipped, time.Since(start).Milliseconds())
	return result, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// First sheet, whatever the workbook calls it.
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.CodeIngestFailed, "workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// processRows converts raw string rows into per-signal observation lists.
// Rows whose timestamp fails every layout are skipped and counted, not
// fatal: field notes and unit rows routinely precede the data block.
func processRows(rows [][]string) (map[string]*series.TimeSeries, int, error) {
	if len(rows) < 2 {
		return nil, 0, errors.New(errors.CodeIngestFailed, "file must have a header row and at least one data row")
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, 0, errors.New(errors.CodeIngestFailed, "file must have a timestamp column and at least one signal column")
	}

	names := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		names = append(names, strings.TrimSpace(h))
	}

	obs := make(map[string][]series.Observation, len(names))
	skipped := 0

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		ts, ok := parseTimestamp(strings.TrimSpace(row[0]))
		if !ok {
			skipped++
			continue
		}

		for j, name := range names {
			if name == "" {
				continue
			}
			value := math.NaN()
			if j+1 < len(row) {
				value = coerceNumeric(row[j+1])
			}
			obs[name] = append(obs[name], series.Observation{Timestamp: ts, Value: value})
		}
	}

	result := make(map[string]*series.TimeSeries, len(obs))
	for name, list := range obs {
		result[name] = series.New(name, list)
	}
	if len(result) == 0 {
		return nil, skipped, errors.New(errors.CodeIngestFailed, "no parseable data rows")
	}
	return result, skipped, nil
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	// Excel serial date: days since 1899-12-30, fraction is time of day.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return epoch.Add(time.Duration(serial * 24 * float64(time.Hour))), true
	}
	return time.Time{}, false
}

// coerceNumeric maps a cell to a float, with blanks and parse failures
// becoming NaN (missing), never a fabricated zero.
func coerceNumeric(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return math.NaN()
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return value
}
