package shift

import (
	"math"
	"testing"

	"biophony/adapters/stats/similarity"
	"biophony/domain/pattern"
)

// surface builds a rows x cols heatmap with cell values from f(week index,
// column index). Labels follow the usual week-10 start and two-hour grid.
func surface(rows, cols int, f func(i, j int) float64) *pattern.Heatmap {
	weeks := make([]int, rows)
	hours := make([]int, cols)
	values := make([][]float64, rows)
	for i := range values {
		weeks[i] = 10 + i
		values[i] = make([]float64, cols)
		for j := range values[i] {
			values[i][j] = f(i, j)
		}
	}
	for j := range hours {
		hours[j] = j * 2
	}
	return &pattern.Heatmap{Name: "surface", Weeks: weeks, Hours: hours, Values: values}
}

// rough keeps the synthetic surfaces irregular enough that no accidental
// off-zero alignment can tie with the planted one.
func rough(i, j int) float64 {
	return math.Sin(1.3*float64(i)+0.9*float64(j)) + math.Cos(0.7*float64(i*j))
}

func TestFindShifts_IdenticalSurfacesPeakAtZero(t *testing.T) {
	h := surface(10, 12, rough)

	res := FindShifts(h, h)
	if res.BestWeekShift != 0 || res.BestHourShift != 0 {
		t.Fatalf("identical surfaces must align at zero, got week=%d hour=%d", res.BestWeekShift, res.BestHourShift)
	}
	if math.Abs(res.BestWeekCorrelation-1) > 1e-9 || math.Abs(res.BestHourCorrelation-1) > 1e-9 {
		t.Errorf("self correlation should be 1, got week=%v hour=%v", res.BestWeekCorrelation, res.BestHourCorrelation)
	}
}

func TestFindShifts_DetectsTwoBucketDelay(t *testing.T) {
	// The probe repeats the target's diel pattern two hour buckets later:
	// probe[w][j] = target[w][j-2]. Positive shift means the probe trails.
	target := surface(10, 12, rough)
	probe := surface(10, 12, func(i, j int) float64 { return rough(i, j-2) })

	res := FindShifts(target, probe)
	if res.BestHourShift != 2 {
		t.Fatalf("expected best_hour_shift=2, got %d (r=%v)", res.BestHourShift, res.BestHourCorrelation)
	}
	if res.BestHourCorrelation < 0.999 {
		t.Errorf("planted delay should correlate near 1, got %v", res.BestHourCorrelation)
	}
	if res.BestWeekShift != 0 {
		t.Errorf("no week displacement was planted, got %d", res.BestWeekShift)
	}
}

func TestFindShifts_DetectsProbeLeadingByOneWeek(t *testing.T) {
	// The probe anticipates the target: probe[w] = target[w+1], so the
	// best alignment is the negative offset -1.
	target := surface(10, 12, rough)
	probe := surface(10, 12, func(i, j int) float64 { return rough(i+1, j) })

	res := FindShifts(target, probe)
	if res.BestWeekShift != -1 {
		t.Fatalf("expected best_week_shift=-1, got %d (r=%v)", res.BestWeekShift, res.BestWeekCorrelation)
	}
	if res.BestWeekCorrelation < 0.999 {
		t.Errorf("planted lead should correlate near 1, got %v", res.BestWeekCorrelation)
	}
}

func TestFindShifts_AntiCorrelationWinsOnMagnitude(t *testing.T) {
	// A strongly inverted probe is as informative as a matching one; the
	// winning correlation keeps its negative sign.
	target := surface(10, 12, rough)
	probe := surface(10, 12, func(i, j int) float64 { return -rough(i, j) })

	res := FindShifts(target, probe)
	if res.BestHourShift != 0 {
		t.Fatalf("inverted copy still aligns at zero, got %d", res.BestHourShift)
	}
	if res.BestHourCorrelation > -0.999 {
		t.Errorf("expected correlation near -1 with sign preserved, got %v", res.BestHourCorrelation)
	}
}

func TestFindShifts_SkipsOffsetsBeyondAxisLength(t *testing.T) {
	// A single-week surface leaves only the zero week offset valid.
	target := surface(1, 12, rough)
	probe := surface(1, 12, func(i, j int) float64 { return rough(i, j-1) })

	res := FindShifts(target, probe)
	if res.BestWeekShift != 0 {
		t.Errorf("one row admits only offset 0, got %d", res.BestWeekShift)
	}
	if res.BestHourShift != 1 {
		t.Errorf("hour axis should still find the planted offset, got %d", res.BestHourShift)
	}
}

func TestFindShifts_DegenerateSurfacesDefaultToZero(t *testing.T) {
	zero := surface(6, 8, func(i, j int) float64 { return 0 })

	res := FindShifts(zero, zero)
	want := pattern.ShiftResult{}
	if res != want {
		t.Errorf("all-zero surfaces should report (0, 0) on both axes, got %+v", res)
	}

	res = FindShifts(&pattern.Heatmap{}, surface(6, 8, rough))
	if res != want {
		t.Errorf("empty overlap should report (0, 0) on both axes, got %+v", res)
	}
}

func TestFindShifts_ZeroOffsetAgreesWithCompare(t *testing.T) {
	// When the best alignment is no displacement at all, the reported
	// correlation must be the same Pearson r the similarity engine sees.
	a := surface(10, 12, rough)
	b := surface(10, 12, func(i, j int) float64 { return rough(i, j) + 0.01*math.Sin(float64(3*i+5*j)) })

	res := FindShifts(a, b)
	if res.BestWeekShift != 0 || res.BestHourShift != 0 {
		t.Fatalf("perturbed copy should align at zero, got week=%d hour=%d", res.BestWeekShift, res.BestHourShift)
	}

	direct := similarity.Compare(a, b)
	if res.BestWeekCorrelation != direct.PearsonR {
		t.Errorf("week correlation %v differs from engine pearson_r %v", res.BestWeekCorrelation, direct.PearsonR)
	}
	if res.BestHourCorrelation != direct.PearsonR {
		t.Errorf("hour correlation %v differs from engine pearson_r %v", res.BestHourCorrelation, direct.PearsonR)
	}
}
