package app

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"biophony/adapters/stats/heatmap"
	"biophony/domain/core"
	"biophony/domain/pattern"
	"biophony/domain/series"
)

// weekStart is a Monday, so observation weeks line up with ISO weeks.
var weekStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// bumpSeries emits a diel gaussian bump peaking at peakHour, every two
// hours across the given number of weeks, with a little deterministic
// day-to-day texture so no surface is degenerate.
func bumpSeries(name string, weeks, peakHour int, gain float64) *series.TimeSeries {
	var obs []series.Observation
	for w := 0; w < weeks; w++ {
		for d := 0; d < 7; d++ {
			for h := 0; h < 24; h += 2 {
				dist := math.Abs(float64(h - peakHour))
				if dist > 12 {
					dist = 24 - dist
				}
				v := gain*math.Exp(-dist*dist/18) + 0.1*math.Sin(float64(w*7+d))
				obs = append(obs, series.Observation{
					Timestamp: weekStart.AddDate(0, 0, w*7+d).Add(time.Duration(h) * time.Hour),
					Value:     v,
				})
			}
		}
	}
	return series.New(name, obs)
}

// rampSeries grows linearly with the hour of day, a shape with low absolute
// correlation against any diel bump.
func rampSeries(name string, weeks int) *series.TimeSeries {
	var obs []series.Observation
	for w := 0; w < weeks; w++ {
		for d := 0; d < 7; d++ {
			for h := 0; h < 24; h += 2 {
				obs = append(obs, series.Observation{
					Timestamp: weekStart.AddDate(0, 0, w*7+d).Add(time.Duration(h) * time.Hour),
					Value:     float64(h)/24 + 0.05*math.Cos(float64(w+d)),
				})
			}
		}
	}
	return series.New(name, obs)
}

func testConfig() RankerConfig {
	cfg := DefaultRankerConfig()
	cfg.Workers = 2
	return cfg
}

func TestRankAll_CartesianProductIsComplete(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
		"toadfish":     bumpSeries("toadfish", 8, 20, 2),
	}
	probes := map[string]*series.TimeSeries{
		"aci": bumpSeries("aci", 8, 8, 1),
		"spl": rampSeries("spl", 8),
		"bde": bumpSeries("bde", 8, 14, 1),
	}

	report, err := NewRanker(testConfig(), nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.PairCount() != 6 {
		t.Fatalf("expected 2x3=6 pairs, got %d", report.PairCount())
	}
	seen := make(map[string]bool)
	for _, p := range report.PairTable {
		seen[p.TargetName+"|"+p.ProbeName] = true
	}
	for target := range targets {
		for probe := range probes {
			if !seen[target+"|"+probe] {
				t.Errorf("pair (%s, %s) missing from table", target, probe)
			}
		}
	}

	if report.TargetCount != 2 || report.ProbeCount != 3 {
		t.Errorf("wrong counts: targets=%d probes=%d", report.TargetCount, report.ProbeCount)
	}
	if report.RunID.IsEmpty() {
		t.Error("report should carry a run ID")
	}
	if report.Fingerprint.IsEmpty() {
		t.Error("report should carry a fingerprint")
	}
}

func TestRankAll_PairTableIsSorted(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
		"toadfish":     bumpSeries("toadfish", 8, 20, 2),
	}
	probes := map[string]*series.TimeSeries{
		"aci": bumpSeries("aci", 8, 8, 1),
		"spl": rampSeries("spl", 8),
		"bde": bumpSeries("bde", 8, 20, 5),
	}

	report, err := NewRanker(testConfig(), nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(report.PairTable); i++ {
		prev, cur := report.PairTable[i-1], report.PairTable[i]
		if prev.Similarity.CompositeScore < cur.Similarity.CompositeScore {
			t.Fatalf("table not sorted by composite at %d: %v < %v", i, prev.Similarity.CompositeScore, cur.Similarity.CompositeScore)
		}
		if prev.Similarity.CompositeScore == cur.Similarity.CompositeScore &&
			math.Abs(prev.Similarity.PearsonR) < math.Abs(cur.Similarity.PearsonR) {
			t.Fatalf("tie at %d not broken by |pearson_r|", i)
		}
	}

	// The matched bump pair must outrank the unrelated ramp pair.
	top := report.PairTable[0]
	if !(top.TargetName == "silver_perch" && top.ProbeName == "aci") &&
		!(top.TargetName == "toadfish" && top.ProbeName == "bde") {
		t.Errorf("expected a matched bump pair on top, got (%s, %s)", top.TargetName, top.ProbeName)
	}
}

func TestRankAll_DeterministicAcrossRuns(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 10, 8, 3),
		"toadfish":     bumpSeries("toadfish", 10, 20, 2),
		"dolphin":      rampSeries("dolphin", 10),
	}
	probes := map[string]*series.TimeSeries{
		"aci":  bumpSeries("aci", 10, 8, 1),
		"spl":  rampSeries("spl", 10),
		"aei":  bumpSeries("aei", 10, 2, 4),
		"ndsi": bumpSeries("ndsi", 10, 14, 2),
	}

	ranker := NewRanker(testConfig(), nil)
	first, err := ranker.RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := ranker.RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprints differ across identical runs: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if !reflect.DeepEqual(first.PairTable, second.PairTable) {
		t.Error("pair tables differ across identical runs")
	}
	if !reflect.DeepEqual(first.MultiMatchProbes, second.MultiMatchProbes) {
		t.Error("multi-match summaries differ across identical runs")
	}
}

func TestRankAll_MultiMatchProbes(t *testing.T) {
	// generalist matches two of the three targets; specialist matches only
	// the third. Only the generalist belongs in the summary.
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 10, 8, 3),
		"black_drum":   bumpSeries("black_drum", 10, 8, 2),
		"dolphin":      rampSeries("dolphin", 10),
	}
	probes := map[string]*series.TimeSeries{
		"generalist": bumpSeries("generalist", 10, 8, 1),
		"specialist": rampSeries("specialist", 10),
	}

	cfg := testConfig()
	cfg.MultiMatchThreshold = 0.8
	report, err := NewRanker(cfg, nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string][]string{
		"generalist": {"black_drum", "silver_perch"},
	}
	if !reflect.DeepEqual(report.MultiMatchProbes, want) {
		t.Errorf("multi-match summary = %v, want %v", report.MultiMatchProbes, want)
	}
}

func TestRankAll_EmptySeriesPairStaysInTable(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
		"silent":       series.New("silent", nil),
	}
	probes := map[string]*series.TimeSeries{
		"aci": bumpSeries("aci", 8, 8, 1),
	}

	report, err := NewRanker(testConfig(), nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.PairCount() != 2 {
		t.Fatalf("expected both pairs in the table, got %d", report.PairCount())
	}

	var silent *pattern.PairRecord
	for i := range report.PairTable {
		if report.PairTable[i].TargetName == "silent" {
			silent = &report.PairTable[i]
		}
	}
	if silent == nil {
		t.Fatal("pair with empty target dropped from the table")
	}
	if silent.Similarity != pattern.NeutralSimilarity() {
		t.Errorf("empty target should score neutral, got %+v", silent.Similarity)
	}
	if silent.Shift != (pattern.ShiftResult{}) {
		t.Errorf("empty target should report zero shifts, got %+v", silent.Shift)
	}
}

func TestRankAll_TopMatchesRespectTopN(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
		"toadfish":     bumpSeries("toadfish", 8, 20, 2),
	}
	probes := map[string]*series.TimeSeries{
		"aci": bumpSeries("aci", 8, 8, 1),
		"spl": rampSeries("spl", 8),
	}

	cfg := testConfig()
	cfg.TopN = 3
	report, err := NewRanker(cfg, nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.TopMatches) != 3 {
		t.Errorf("expected 3 top matches, got %d", len(report.TopMatches))
	}
	if !reflect.DeepEqual(report.TopMatches, report.PairTable[:3]) {
		t.Error("top matches must be the head of the sorted table")
	}

	cfg.TopN = 50
	report, err = NewRanker(cfg, nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.TopMatches) != report.PairCount() {
		t.Errorf("oversized top_n should clamp to the table, got %d", len(report.TopMatches))
	}
}

func TestRankAll_SharedNameBuildsOneSurface(t *testing.T) {
	shared := bumpSeries("aci", 8, 8, 1)
	targets := map[string]*series.TimeSeries{
		"aci":          shared,
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
	}
	probes := map[string]*series.TimeSeries{
		"aci": shared,
		"spl": rampSeries("spl", 8),
	}

	report, err := NewRanker(testConfig(), nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.PairCount() != 4 {
		t.Fatalf("shared names never shrink the product, got %d pairs", report.PairCount())
	}
	top := report.PairTable[0]
	if top.TargetName != "aci" || top.ProbeName != "aci" {
		t.Errorf("self pair should rank first, got (%s, %s)", top.TargetName, top.ProbeName)
	}
	if !(math.Abs(top.Similarity.CompositeScore-1.0) < 1e-9) {
		t.Errorf("self pair composite should be 1.0, got %v", top.Similarity.CompositeScore)
	}

	count := 0
	for _, profile := range report.Profiles {
		if profile.Name == "aci" {
			count++
			if profile.Role != "target" {
				t.Errorf("shared name should profile as target, got %q", profile.Role)
			}
		}
	}
	if count != 1 {
		t.Errorf("shared name should appear in exactly one profile, got %d", count)
	}
}

func TestRankAll_ConfigurationErrorsFailFast(t *testing.T) {
	ok := map[string]*series.TimeSeries{"aci": bumpSeries("aci", 8, 8, 1)}

	cases := []struct {
		name    string
		cfg     RankerConfig
		targets map[string]*series.TimeSeries
		probes  map[string]*series.TimeSeries
		want    error
	}{
		{"no targets", testConfig(), nil, ok, core.ErrNoTargets},
		{"no probes", testConfig(), ok, nil, core.ErrNoProbes},
		{
			"empty hour buckets",
			RankerConfig{Aggregation: heatmap.AggMean, Workers: 1},
			ok, ok, core.ErrEmptyHourBuckets,
		},
		{
			"unknown aggregation",
			RankerConfig{HourBuckets: core.EvenHours(), Aggregation: "median", Workers: 1},
			ok, ok, core.ErrUnknownAggregation,
		},
		{
			"threshold out of range",
			RankerConfig{HourBuckets: core.EvenHours(), Aggregation: heatmap.AggMean, MultiMatchThreshold: 1.5, Workers: 1},
			ok, ok, core.ErrThresholdRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report, err := NewRanker(tc.cfg, nil).RankAll(context.Background(), tc.targets, tc.probes)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			if !core.IsConfigError(err) {
				t.Errorf("%v should classify as a config error", err)
			}
			if report != nil {
				t.Error("no report should be produced on config failure")
			}
		})
	}
}

func TestRankAll_ProfilesCoverEverySignal(t *testing.T) {
	targets := map[string]*series.TimeSeries{
		"silver_perch": bumpSeries("silver_perch", 8, 8, 3),
	}
	probes := map[string]*series.TimeSeries{
		"aci": bumpSeries("aci", 8, 8, 1),
		"spl": rampSeries("spl", 8),
	}

	report, err := NewRanker(testConfig(), nil).RankAll(context.Background(), targets, probes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(report.Profiles))
	}
	if report.Profiles[0].Role != "target" {
		t.Errorf("targets profile first, got role %q", report.Profiles[0].Role)
	}
	for _, p := range report.Profiles {
		if p.Weeks != 8 || p.Hours != 12 {
			t.Errorf("profile %s shape = %dx%d, want 8x12", p.Name, p.Weeks, p.Hours)
		}
		if p.FillRatio <= 0 || p.FillRatio > 1 {
			t.Errorf("profile %s fill ratio out of range: %v", p.Name, p.FillRatio)
		}
		if p.Max < p.Min || p.StdDev < 0 {
			t.Errorf("profile %s descriptives inconsistent: %+v", p.Name, p)
		}
	}
}
