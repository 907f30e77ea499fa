package series

import (
	"math"
	"sort"
	"time"
)

// Observation is a single timestamped measurement.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries holds the ordered observations of one named signal: a species
// detection intensity, or one acoustic index. Timestamps strictly increase
// after construction; values may be NaN where the recorder produced no
// usable measurement.
type TimeSeries struct {
	Name         string
	Observations []Observation
}

// New builds a TimeSeries from raw observations. Observations are sorted by
// timestamp; duplicate timestamps keep the first occurrence. The input slice
// is not mutated.
func New(name string, obs []Observation) *TimeSeries {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	deduped := make([]Observation, 0, len(sorted))
	for i, o := range sorted {
		if i > 0 && o.Timestamp.Equal(sorted[i-1].Timestamp) {
			continue
		}
		deduped = append(deduped, o)
	}

	return &TimeSeries{Name: name, Observations: deduped}
}

// Len returns the number of observations.
func (ts *TimeSeries) Len() int {
	return len(ts.Observations)
}

// ValidCount returns the number of non-NaN observations.
func (ts *TimeSeries) ValidCount() int {
	count := 0
	for _, o := range ts.Observations {
		if !math.IsNaN(o.Value) {
			count++
		}
	}
	return count
}

// Values returns the observation values in timestamp order.
func (ts *TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.Observations))
	for i, o := range ts.Observations {
		values[i] = o.Value
	}
	return values
}

// Span returns the first and last observation timestamps; ok is false for an
// empty series.
func (ts *TimeSeries) Span() (start, end time.Time, ok bool) {
	if len(ts.Observations) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return ts.Observations[0].Timestamp, ts.Observations[len(ts.Observations)-1].Timestamp, true
}
