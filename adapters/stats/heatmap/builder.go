package heatmap

import (
	"math"
	"sort"
	"time"

	"biophony/domain/core"
	"biophony/domain/pattern"
	"biophony/domain/series"
)

// Aggregation selects the per-cell reducer.
type Aggregation string

const (
	AggSum  Aggregation = "sum"
	AggMean Aggregation = "mean"
)

// ParseAggregation validates an aggregation name.
func ParseAggregation(name string) (Aggregation, error) {
	switch Aggregation(name) {
	case AggSum:
		return AggSum, nil
	case AggMean:
		return AggMean, nil
	}
	return "", core.NewAggregationError(name)
}

// Bucketer maps an observation timestamp to its (ISO week, hour) cell key.
// Callers with shifted clocks or pre-bucketed data may substitute their own.
type Bucketer func(t time.Time) (week int, hour int)

// DefaultBucketer keys cells by ISO week-of-year and clock hour.
func DefaultBucketer(t time.Time) (int, int) {
	return core.WeekOfYear(t), core.HourOfDay(t)
}

// Config carries the shared heatmap construction settings for one batch run.
type Config struct {
	HourBuckets []int
	Aggregation Aggregation
	Bucketer    Bucketer // nil means DefaultBucketer
}

// Validate surfaces caller contract violations. Invalid configuration is the
// one condition the heatmap layer treats as a hard failure.
func (c Config) Validate() error {
	if len(c.HourBuckets) == 0 {
		return core.ErrEmptyHourBuckets
	}
	seen := make(map[int]bool, len(c.HourBuckets))
	for _, h := range c.HourBuckets {
		if h < 0 || h > 23 {
			return core.NewBucketRangeError(h)
		}
		if seen[h] {
			return core.NewDuplicateBucketError(h)
		}
		seen[h] = true
	}
	if _, err := ParseAggregation(string(c.Aggregation)); err != nil {
		return err
	}
	return nil
}

type cellKey struct {
	week int
	col  int
}

// Build turns one series into its dense week x hour activity surface.
// Observations are grouped by (ISO week, hour bucket) and reduced with the
// configured aggregation; every (week, bucket) cell with no observations
// stays 0, so downstream arrays are dense and never ragged. Rows cover
// exactly the distinct weeks observed in the input, ascending; columns
// follow the caller's bucket order. NaN observations contribute nothing, and
// observations at hours outside the bucket set fill no cell (their week
// still earns a row). Pure and deterministic.
func Build(ts *series.TimeSeries, cfg Config) (*pattern.Heatmap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bucketer := cfg.Bucketer
	if bucketer == nil {
		bucketer = DefaultBucketer
	}

	colIndex := make(map[int]int, len(cfg.HourBuckets))
	for i, h := range cfg.HourBuckets {
		colIndex[h] = i
	}

	sums := make(map[cellKey]float64)
	counts := make(map[cellKey]int)
	weekSet := make(map[int]bool)

	for _, obs := range ts.Observations {
		if math.IsNaN(obs.Value) {
			continue
		}
		week, hour := bucketer(obs.Timestamp)
		weekSet[week] = true

		col, ok := colIndex[hour]
		if !ok {
			continue
		}
		key := cellKey{week: week, col: col}
		sums[key] += obs.Value
		counts[key]++
	}

	weeks := make([]int, 0, len(weekSet))
	for w := range weekSet {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	rowIndex := make(map[int]int, len(weeks))
	for i, w := range weeks {
		rowIndex[w] = i
	}

	values := make([][]float64, len(weeks))
	for i := range values {
		values[i] = make([]float64, len(cfg.HourBuckets))
	}
	for key, sum := range sums {
		cell := sum
		if cfg.Aggregation == AggMean {
			cell = sum / float64(counts[key])
		}
		values[rowIndex[key.week]][key.col] = cell
	}

	hours := make([]int, len(cfg.HourBuckets))
	copy(hours, cfg.HourBuckets)

	return &pattern.Heatmap{Name: ts.Name, Weeks: weeks, Hours: hours, Values: values}, nil
}
