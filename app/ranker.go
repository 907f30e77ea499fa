// Package app orchestrates the batch pipeline: build one activity surface
// per signal, score every (target, probe) combination, and assemble the
// ranked report.
package app

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	mfstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"biophony/adapters/stats/heatmap"
	"biophony/adapters/stats/shift"
	"biophony/adapters/stats/similarity"
	"biophony/domain/core"
	"biophony/domain/pattern"
	"biophony/domain/run"
	"biophony/domain/series"
	"biophony/internal"
)

// RankerConfig carries the batch settings. The zero value is not usable;
// start from DefaultRankerConfig.
type RankerConfig struct {
	HourBuckets         []int
	Aggregation         heatmap.Aggregation
	MultiMatchThreshold float64
	TopN                int
	Workers             int64
	Bucketer            heatmap.Bucketer
}

// DefaultRankerConfig matches the survey setup this pipeline was built
// around: two-hour buckets over the full day, mean aggregation, and a 0.4
// composite threshold for flagging generalist probes.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		HourBuckets:         core.EvenHours(),
		Aggregation:         heatmap.AggMean,
		MultiMatchThreshold: 0.4,
		TopN:                20,
		Workers:             4,
	}
}

// Ranker runs the full cross-product of target and probe signals through
// the similarity engine and shift search.
type Ranker struct {
	cfg RankerConfig
	log *internal.Logger
}

// NewRanker creates a ranker; a nil logger falls back to the package
// default.
func NewRanker(cfg RankerConfig, logger *internal.Logger) *Ranker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Ranker{cfg: cfg, log: logger}
}

// RankAll scores every (target, probe) combination and returns the ranked
// report. Configuration problems fail hard before any computation; a pair
// that cannot be scored (empty series, degenerate surface) still appears in
// the table with neutral defaults.
//
// Output is deterministic for identical inputs and configuration: the pair
// table is fully ordered and the report fingerprint is byte-stable across
// runs.
func (r *Ranker) RankAll(ctx context.Context, targets, probes map[string]*series.TimeSeries) (*run.Report, error) {
	start := time.Now()

	if err := r.validate(targets, probes); err != nil {
		return nil, err
	}

	targetNames := sortedNames(targets)
	probeNames := sortedNames(probes)

	r.log.Info("Building activity surfaces for %d targets and %d probes", len(targetNames), len(probeNames))
	cache, err := r.buildSurfaces(targets, probes, targetNames, probeNames)
	if err != nil {
		return nil, err
	}

	r.log.Info("Scoring %d pairs with %d workers", len(targetNames)*len(probeNames), r.workers())
	pairs, err := r.scorePairs(ctx, cache, targetNames, probeNames)
	if err != nil {
		return nil, err
	}
	sortPairTable(pairs)

	report := &run.Report{
		RunID:       core.NewRunID(),
		GeneratedAt: time.Now().UTC(),
		Config: run.Config{
			HourBuckets:         append([]int(nil), r.cfg.HourBuckets...),
			Aggregation:         string(r.cfg.Aggregation),
			MultiMatchThreshold: r.cfg.MultiMatchThreshold,
			TopN:                r.cfg.TopN,
		},
		TargetCount:      len(targetNames),
		ProbeCount:       len(probeNames),
		PairTable:        pairs,
		MultiMatchProbes: multiMatchProbes(pairs, r.cfg.MultiMatchThreshold),
		Profiles:         buildProfiles(cache, targetNames, probeNames),
		Fingerprint:      run.ComputeFingerprint(pairs),
		RuntimeMs:        time.Since(start).Milliseconds(),
	}
	report.TopMatches = report.Top(r.cfg.TopN)

	r.log.Info("Ranked %d pairs in %d ms", report.PairCount(), report.RuntimeMs)
	return report, nil
}

func (r *Ranker) validate(targets, probes map[string]*series.TimeSeries) error {
	if len(targets) == 0 {
		return core.ErrNoTargets
	}
	if len(probes) == 0 {
		return core.ErrNoProbes
	}
	if err := r.heatmapConfig().Validate(); err != nil {
		return err
	}
	if t := r.cfg.MultiMatchThreshold; t < 0 || t > 1 {
		return core.NewThresholdError(t)
	}
	return nil
}

func (r *Ranker) heatmapConfig() heatmap.Config {
	return heatmap.Config{
		HourBuckets: r.cfg.HourBuckets,
		Aggregation: r.cfg.Aggregation,
		Bucketer:    r.cfg.Bucketer,
	}
}

func (r *Ranker) workers() int64 {
	if r.cfg.Workers <= 0 {
		return 1
	}
	return r.cfg.Workers
}

// buildSurfaces populates the heatmap cache once, before any reader exists.
// A name identifies one signal even when it appears in both maps; the
// targets-side series wins, so the cache holds exactly one surface per
// name. After this returns the cache is read-only.
func (r *Ranker) buildSurfaces(targets, probes map[string]*series.TimeSeries, targetNames, probeNames []string) (map[string]*pattern.Heatmap, error) {
	cfg := r.heatmapConfig()
	cache := make(map[string]*pattern.Heatmap, len(targetNames)+len(probeNames))

	for _, name := range targetNames {
		h, err := heatmap.Build(targets[name], cfg)
		if err != nil {
			return nil, err
		}
		cache[name] = h
	}
	for _, name := range probeNames {
		if _, ok := cache[name]; ok {
			continue
		}
		h, err := heatmap.Build(probes[name], cfg)
		if err != nil {
			return nil, err
		}
		cache[name] = h
	}
	return cache, nil
}

// scorePairs walks the Cartesian product. Each worker writes only its own
// slot in the preallocated table, so no locking is needed beyond the
// semaphore bounding concurrency.
func (r *Ranker) scorePairs(ctx context.Context, cache map[string]*pattern.Heatmap, targetNames, probeNames []string) ([]pattern.PairRecord, error) {
	pairs := make([]pattern.PairRecord, len(targetNames)*len(probeNames))
	sem := semaphore.NewWeighted(r.workers())
	var wg sync.WaitGroup

	for i, targetName := range targetNames {
		for j, probeName := range probeNames {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return nil, err
			}

			wg.Add(1)
			go func(slot int, targetName, probeName string) {
				defer wg.Done()
				defer sem.Release(1)

				th := cache[targetName]
				ph := cache[probeName]
				pairs[slot] = pattern.PairRecord{
					TargetName: targetName,
					ProbeName:  probeName,
					Similarity: similarity.Compare(th, ph),
					Shift:      shift.FindShifts(th, ph),
				}
			}(i*len(probeNames)+j, targetName, probeName)
		}
	}

	wg.Wait()
	return pairs, nil
}

// sortPairTable orders by composite score descending, breaking ties by
// |pearson_r| descending and finally by the unique (target, probe) key, so
// the resulting order is total.
func sortPairTable(pairs []pattern.PairRecord) {
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Similarity.CompositeScore != b.Similarity.CompositeScore {
			return a.Similarity.CompositeScore > b.Similarity.CompositeScore
		}
		absA, absB := math.Abs(a.Similarity.PearsonR), math.Abs(b.Similarity.PearsonR)
		if absA != absB {
			return absA > absB
		}
		if a.TargetName != b.TargetName {
			return a.TargetName < b.TargetName
		}
		return a.ProbeName < b.ProbeName
	})
}

// multiMatchProbes flags probes whose composite score strictly exceeds the
// threshold against at least two distinct targets. These generalists often
// track broadband conditions (weather, vessel noise) rather than any one
// sound producer.
func multiMatchProbes(pairs []pattern.PairRecord, threshold float64) map[string][]string {
	hits := make(map[string][]string)
	for _, p := range pairs {
		if p.Similarity.CompositeScore > threshold {
			hits[p.ProbeName] = append(hits[p.ProbeName], p.TargetName)
		}
	}

	multi := make(map[string][]string)
	for probe, matched := range hits {
		if len(matched) >= 2 {
			sort.Strings(matched)
			multi[probe] = matched
		}
	}
	return multi
}

// buildProfiles summarizes every cached surface, targets first, both in
// name order.
func buildProfiles(cache map[string]*pattern.Heatmap, targetNames, probeNames []string) []run.SignalProfile {
	profiles := make([]run.SignalProfile, 0, len(cache))
	seen := make(map[string]bool, len(cache))

	for _, name := range targetNames {
		profiles = append(profiles, profileSurface(name, "target", cache[name]))
		seen[name] = true
	}
	for _, name := range probeNames {
		if seen[name] {
			continue
		}
		profiles = append(profiles, profileSurface(name, "probe", cache[name]))
	}
	return profiles
}

func profileSurface(name, role string, h *pattern.Heatmap) run.SignalProfile {
	profile := run.SignalProfile{
		Name:  name,
		Role:  role,
		Weeks: h.Rows(),
		Hours: h.Cols(),
	}

	flat := h.Flatten()
	if len(flat) == 0 {
		return profile
	}

	active := 0
	for _, v := range flat {
		if v != 0 {
			active++
		}
	}
	profile.FillRatio = float64(active) / float64(len(flat))

	// montanaflynn helpers error only on empty input, which is excluded
	// above; descriptives stay at zero if one slips through.
	if m, err := mfstats.Mean(flat); err == nil {
		profile.Mean = m
	}
	if sd, err := mfstats.StandardDeviation(flat); err == nil {
		profile.StdDev = sd
	}
	if lo, err := mfstats.Min(flat); err == nil {
		profile.Min = lo
	}
	if hi, err := mfstats.Max(flat); err == nil {
		profile.Max = hi
	}
	if md, err := mfstats.Median(flat); err == nil {
		profile.Median = md
	}
	return profile
}

func sortedNames(m map[string]*series.TimeSeries) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
