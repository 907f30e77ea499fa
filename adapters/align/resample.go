// Package align resamples irregular observation series onto a fixed
// interval grid. Hydrophone exports rarely tick uniformly: detector logs
// skip silent periods and index files follow duty cycles, so series must be
// regularized before their activity surfaces are comparable.
package align

import (
	"fmt"
	"math"
	"sort"
	"time"

	"biophony/domain/core"
	"biophony/domain/series"
)

// Fill defines how to handle grid buckets with no observations.
type Fill string

const (
	FillZero    Fill = "zero"    // Fill with 0.0
	FillForward Fill = "forward" // Forward-fill last observed value
	FillMean    Fill = "mean"    // Fill with mean of observed values so far
	FillNaN     Fill = "nan"     // Fill with NaN; downstream surfaces treat it as missing
)

// ParseFill validates a fill strategy name.
func ParseFill(name string) (Fill, error) {
	switch f := Fill(name); f {
	case FillZero, FillForward, FillMean, FillNaN:
		return f, nil
	default:
		return "", core.NewFillStrategyError(name)
	}
}

// Aggregate defines how to combine multiple observations in one bucket.
type Aggregate string

const (
	AggSum   Aggregate = "sum"
	AggMean  Aggregate = "mean"
	AggCount Aggregate = "count"
	AggMax   Aggregate = "max"
	AggMin   Aggregate = "min"
)

// ParseAggregate validates an aggregation name.
func ParseAggregate(name string) (Aggregate, error) {
	switch a := Aggregate(name); a {
	case AggSum, AggMean, AggCount, AggMax, AggMin:
		return a, nil
	default:
		return "", core.NewAggregationError(name)
	}
}

// Config controls the resampling behavior. Zero fields take the defaults
// from DefaultConfig.
type Config struct {
	Interval    time.Duration
	Aggregate   Aggregate
	Fill        Fill
	MinPoints   int     // minimum grid length worth analyzing
	MaxGapRatio float64 // maximum share of buckets with no observation
}

// DefaultConfig matches the two-hour duty cycle most soundscape loggers
// run on.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Hour,
		Aggregate:   AggMean,
		Fill:        FillZero,
		MinPoints:   10,
		MaxGapRatio: 0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Aggregate == "" {
		c.Aggregate = d.Aggregate
	}
	if c.Fill == "" {
		c.Fill = d.Fill
	}
	if c.MinPoints == 0 {
		c.MinPoints = d.MinPoints
	}
	if c.MaxGapRatio == 0 {
		c.MaxGapRatio = d.MaxGapRatio
	}
	return c
}

// SkippedSeries records one input ResampleAll had to leave out, with the
// reason it failed.
type SkippedSeries struct {
	Name   string
	Reason error
}

// Resample regularizes one series onto the interval grid spanning its first
// and last valid observation. NaN observations are treated as missing and
// never enter a bucket. The returned series has exactly one observation per
// grid point.
//
// Errors are real here, unlike in the pairwise statistics: a series with no
// valid observations, a grid shorter than MinPoints, or a gap ratio above
// MaxGapRatio is not usable and the caller decides whether to skip or
// abort.
func Resample(ts *series.TimeSeries, cfg Config) (*series.TimeSeries, error) {
	cfg = cfg.withDefaults()
	if _, err := ParseAggregate(string(cfg.Aggregate)); err != nil {
		return nil, err
	}
	if _, err := ParseFill(string(cfg.Fill)); err != nil {
		return nil, err
	}

	events := validObservations(ts)
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoObservations, ts.Name)
	}

	start := events[0].Timestamp.Truncate(cfg.Interval)
	end := events[len(events)-1].Timestamp.Truncate(cfg.Interval)
	grid := generateTimeGrid(start, end, cfg.Interval)
	if len(grid) < cfg.MinPoints {
		return nil, fmt.Errorf("%w: %s spans %d grid points, need at least %d",
			core.ErrSeriesTooSparse, ts.Name, len(grid), cfg.MinPoints)
	}

	values, observed := resampleToGrid(events, start, len(grid), cfg)

	if gap := gapRatioFromObserved(observed); gap > cfg.MaxGapRatio {
		return nil, fmt.Errorf("%w: %s missing %.0f%% of %d buckets (max %.0f%%)",
			core.ErrSeriesTooSparse, ts.Name, gap*100, len(grid), cfg.MaxGapRatio*100)
	}

	out := make([]series.Observation, len(grid))
	for i, gridTime := range grid {
		out[i] = series.Observation{Timestamp: gridTime, Value: values[i]}
	}
	return series.New(ts.Name, out), nil
}

// ResampleAll resamples every series in the map, collecting failures
// instead of aborting: one sparse detector log should not sink a whole
// deployment. Results are keyed as the input was; skipped entries come back
// in name order.
func ResampleAll(all map[string]*series.TimeSeries, cfg Config) (map[string]*series.TimeSeries, []SkippedSeries) {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*series.TimeSeries, len(all))
	var skipped []SkippedSeries
	for _, name := range names {
		aligned, err := Resample(all[name], cfg)
		if err != nil {
			skipped = append(skipped, SkippedSeries{Name: name, Reason: err})
			continue
		}
		out[name] = aligned
	}
	return out, skipped
}

func validObservations(ts *series.TimeSeries) []series.Observation {
	events := make([]series.Observation, 0, len(ts.Observations))
	for _, obs := range ts.Observations {
		if !math.IsNaN(obs.Value) {
			events = append(events, obs)
		}
	}
	return events
}

// generateTimeGrid emits every interval step from start through end
// inclusive.
func generateTimeGrid(start, end time.Time, interval time.Duration) []time.Time {
	var grid []time.Time
	for cur := start; !cur.After(end); cur = cur.Add(interval) {
		grid = append(grid, cur)
	}
	return grid
}

// resampleToGrid aggregates events into their buckets in one pass, then
// walks the grid in order so fill strategies can see every earlier bucket.
// The observed mask marks buckets that contained at least one real event,
// keeping true zeros distinguishable from imputed ones.
func resampleToGrid(events []series.Observation, gridStart time.Time, n int, cfg Config) ([]float64, []bool) {
	buckets := make([][]float64, n)
	for _, event := range events {
		idx := int(event.Timestamp.Sub(gridStart) / cfg.Interval)
		if idx < 0 || idx >= n {
			continue
		}
		buckets[idx] = append(buckets[idx], event.Value)
	}

	values := make([]float64, n)
	observed := make([]bool, n)
	for i, bucket := range buckets {
		if len(bucket) > 0 {
			observed[i] = true
			values[i] = aggregate(bucket, cfg.Aggregate)
		} else {
			values[i] = fillMissingValue(cfg.Fill, values, observed, i)
		}
	}
	return values, observed
}

// aggregate applies the aggregation function
func aggregate(values []float64, fn Aggregate) float64 {
	if len(values) == 0 {
		return 0
	}

	switch fn {
	case AggSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	case AggCount:
		return float64(len(values))
	case AggMax:
		return maxOf(values)
	case AggMin:
		return minOf(values)
	default:
		return mean(values)
	}
}

// fillMissingValue determines what to use for a bucket with no events.
// Forward and mean fills only ever draw on observed buckets, never on
// earlier imputed values.
func fillMissingValue(strategy Fill, values []float64, observed []bool, idx int) float64 {
	switch strategy {
	case FillForward:
		for i := idx - 1; i >= 0; i-- {
			if observed[i] {
				return values[i]
			}
		}
		return 0.0
	case FillMean:
		sum := 0.0
		count := 0
		for i := 0; i < idx; i++ {
			if observed[i] && !math.IsNaN(values[i]) {
				sum += values[i]
				count++
			}
		}
		if count == 0 {
			return 0.0
		}
		return sum / float64(count)
	case FillNaN:
		return math.NaN()
	default:
		return 0.0
	}
}

// gapRatioFromObserved returns the proportion of buckets that held no real
// event.
func gapRatioFromObserved(observed []bool) float64 {
	if len(observed) == 0 {
		return 1.0
	}
	missing := 0
	for _, ok := range observed {
		if !ok {
			missing++
		}
	}
	return float64(missing) / float64(len(observed))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
