// Package testkit generates seeded synthetic soundscape data: species
// detection series with diel and seasonal structure, plus acoustic-index
// series coupled to them with configurable lag and noise. Tests and the
// CLI synthetic path share it so scenarios stay reproducible.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"biophony/domain/series"
)

// SoundscapeConfig configures the synthetic soundscape generator
type SoundscapeConfig struct {
	Weeks         int       `json:"weeks"`
	IntervalHours int       `json:"interval_hours"`
	SpeciesCount  int       `json:"species_count"`
	IndexCount    int       `json:"index_count"`
	NoiseLevel    float64   `json:"noise_level"`
	Coupling      float64   `json:"coupling"`
	LagHours      int       `json:"lag_hours"`
	StartDate     time.Time `json:"start_date"`
	Seed          int64     `json:"seed"`
}

// DefaultSoundscapeConfig returns a season of 2-hourly sampling: three
// species with distinct diel peaks, six indices of which half track a
// species and half are uncorrelated.
func DefaultSoundscapeConfig() SoundscapeConfig {
	return SoundscapeConfig{
		Weeks:         16,
		IntervalHours: 2,
		SpeciesCount:  3,
		IndexCount:    6,
		NoiseLevel:    0.15,
		Coupling:      0.8,
		LagHours:      2,
		// A Monday, so generated weeks line up with ISO weeks.
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Seed:      42,
	}
}

// SoundscapeGenerator produces deterministic detection and index series
type SoundscapeGenerator struct {
	config SoundscapeConfig
	rng    *rand.Rand
}

// NewSoundscapeGenerator creates a generator seeded from the config
func NewSoundscapeGenerator(config SoundscapeConfig) *SoundscapeGenerator {
	return &SoundscapeGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateTargets produces one detection series per species. Species k
// peaks at a distinct hour of day and carries a seasonal envelope peaking
// at a distinct week, so no two targets share a pattern.
func (g *SoundscapeGenerator) GenerateTargets() map[string]*series.TimeSeries {
	targets := make(map[string]*series.TimeSeries, g.config.SpeciesCount)
	for k := 0; k < g.config.SpeciesCount; k++ {
		name := fmt.Sprintf("species_%02d", k+1)
		peakHour := (4 + k*8) % 24
		peakWeek := g.config.Weeks * (k + 1) / (g.config.SpeciesCount + 1)
		targets[name] = g.activitySeries(name, peakHour, peakWeek, 0)
	}
	return targets
}

// GenerateProbes produces one index series per configured index. The first
// half are coupled probes: index i tracks species i mod SpeciesCount,
// delayed by LagHours and mixed with noise per the coupling weight. The
// rest are pure-noise controls.
func (g *SoundscapeGenerator) GenerateProbes() map[string]*series.TimeSeries {
	probes := make(map[string]*series.TimeSeries, g.config.IndexCount)
	coupled := g.config.IndexCount / 2
	if g.config.SpeciesCount == 0 {
		coupled = 0
	}

	for i := 0; i < g.config.IndexCount; i++ {
		name := fmt.Sprintf("index_%02d", i+1)
		if i < coupled {
			k := i % g.config.SpeciesCount
			peakHour := (4 + k*8) % 24
			peakWeek := g.config.Weeks * (k + 1) / (g.config.SpeciesCount + 1)
			probes[name] = g.coupledSeries(name, peakHour, peakWeek)
		} else {
			probes[name] = g.noiseSeries(name)
		}
	}
	return probes
}

// activitySeries emits the deterministic diel x seasonal activity shape
// plus Gaussian noise, shifted later in the day by lagHours.
func (g *SoundscapeGenerator) activitySeries(name string, peakHour, peakWeek, lagHours int) *series.TimeSeries {
	obs := g.walkGrid(func(w int, hour int) float64 {
		return g.activity(w, hour-lagHours, peakHour, peakWeek) + g.rng.NormFloat64()*g.config.NoiseLevel
	})
	return series.New(name, obs)
}

// coupledSeries mixes the lagged species signal with independent noise,
// weighted by the coupling factor.
func (g *SoundscapeGenerator) coupledSeries(name string, peakHour, peakWeek int) *series.TimeSeries {
	c := g.config.Coupling
	obs := g.walkGrid(func(w int, hour int) float64 {
		signal := g.activity(w, hour-g.config.LagHours, peakHour, peakWeek)
		return c*signal + (1-c)*g.rng.Float64() + g.rng.NormFloat64()*g.config.NoiseLevel
	})
	return series.New(name, obs)
}

// noiseSeries is an uncorrelated control with no temporal structure.
func (g *SoundscapeGenerator) noiseSeries(name string) *series.TimeSeries {
	obs := g.walkGrid(func(int, int) float64 {
		return g.rng.Float64()
	})
	return series.New(name, obs)
}

// walkGrid visits every sampling instant of the configured span in
// timestamp order and records the value the shape function returns.
func (g *SoundscapeGenerator) walkGrid(value func(week, hour int) float64) []series.Observation {
	step := g.config.IntervalHours
	if step <= 0 {
		step = 2
	}

	var obs []series.Observation
	for w := 0; w < g.config.Weeks; w++ {
		for d := 0; d < 7; d++ {
			for h := 0; h < 24; h += step {
				ts := g.config.StartDate.AddDate(0, 0, w*7+d).Add(time.Duration(h) * time.Hour)
				obs = append(obs, series.Observation{Timestamp: ts, Value: value(w, h)})
			}
		}
	}
	return obs
}

// activity is the noise-free calling intensity: a diel gaussian bump
// around peakHour (wrapping at midnight) under a seasonal envelope peaking
// at peakWeek.
func (g *SoundscapeGenerator) activity(week, hour, peakHour, peakWeek int) float64 {
	dist := math.Abs(float64(((hour % 24) + 24) % 24 - peakHour))
	if dist > 12 {
		dist = 24 - dist
	}
	diel := math.Exp(-dist * dist / 18)

	spread := float64(g.config.Weeks) / 3
	if spread < 1 {
		spread = 1
	}
	wd := float64(week - peakWeek)
	seasonal := 0.3 + 0.7*math.Exp(-wd*wd/(2*spread*spread))

	return diel * seasonal
}
