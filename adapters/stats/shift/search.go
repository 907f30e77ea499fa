// Package shift scans bounded integer offsets between two activity surfaces
// to find the row (week) and column (hour bucket) displacement where their
// linear correlation is strongest. The two axes are scanned independently:
// a seasonal lead and a diel lead are separate findings.
package shift

import (
	"math"

	"biophony/adapters/stats/similarity"
	"biophony/domain/pattern"
)

// Scan windows. Offsets beyond these are ecologically meaningless for the
// weekly and two-hourly resolutions the surfaces carry.
const (
	MaxWeekShift = 4
	MaxHourShift = 6
)

type axisSlicer func(a, b *pattern.Heatmap, s int) (*pattern.Heatmap, *pattern.Heatmap)

// FindShifts crops both surfaces to their common shape, then scans week
// offsets in [-MaxWeekShift, MaxWeekShift] and hour-bucket offsets in
// [-MaxHourShift, MaxHourShift]. Each offset is evaluated by cropping the
// non-overlapping edge away (never wrapping), flattening, and Pearson
// correlating; the offset with the largest absolute correlation wins and
// keeps its sign. A positive shift means the probe pattern trails the
// target pattern by that many rows or columns.
//
// FindShifts never fails: an offset whose magnitude reaches the axis length
// is skipped, and if nothing produces a defined correlation the result is
// (0, 0) on that axis.
func FindShifts(h1, h2 *pattern.Heatmap) pattern.ShiftResult {
	rows, cols := pattern.CommonShape(h1, h2)
	a := h1.Crop(rows, cols)
	b := h2.Crop(rows, cols)

	weekShift, weekCorr := scanAxis(a, b, MaxWeekShift, rows, shiftRows)
	hourShift, hourCorr := scanAxis(a, b, MaxHourShift, cols, shiftCols)

	return pattern.ShiftResult{
		BestWeekShift:       weekShift,
		BestWeekCorrelation: weekCorr,
		BestHourShift:       hourShift,
		BestHourCorrelation: hourCorr,
	}
}

// scanAxis walks the offset window and keeps the strongest correlation.
// Ties on |r| prefer the smaller |offset|, then offset 0, so an aligned
// pair can never report a spurious displacement.
func scanAxis(a, b *pattern.Heatmap, maxShift, axisLen int, slice axisSlicer) (int, float64) {
	bestShift := 0
	bestCorr := 0.0

	for s := -maxShift; s <= maxShift; s++ {
		if abs(s) >= axisLen {
			continue
		}

		sa, sb := slice(a, b, s)
		x, y := pattern.CleanPairs(sa.Flatten(), sb.Flatten())
		corr, _ := similarity.Pearson(x, y)

		if math.Abs(corr) > math.Abs(bestCorr) ||
			(math.Abs(corr) == math.Abs(bestCorr) && abs(s) < abs(bestShift)) ||
			(math.Abs(corr) == math.Abs(bestCorr) && abs(s) == abs(bestShift) && s == 0) {
			bestCorr = corr
			bestShift = s
		}
	}

	return bestShift, bestCorr
}

// shiftRows realizes a week offset s. For s >= 0 the probe trails the
// target: target rows [0, n-s) align with probe rows [s, n).
func shiftRows(a, b *pattern.Heatmap, s int) (*pattern.Heatmap, *pattern.Heatmap) {
	rows, cols := a.Rows(), a.Cols()
	if s >= 0 {
		return a.Region(0, 0, rows-s, cols), b.Region(s, 0, rows-s, cols)
	}
	k := -s
	return a.Region(k, 0, rows-k, cols), b.Region(0, 0, rows-k, cols)
}

// shiftCols realizes an hour-bucket offset s, same alignment rule applied
// along the column axis.
func shiftCols(a, b *pattern.Heatmap, s int) (*pattern.Heatmap, *pattern.Heatmap) {
	rows, cols := a.Rows(), a.Cols()
	if s >= 0 {
		return a.Region(0, 0, rows, cols-s), b.Region(0, s, rows, cols-s)
	}
	k := -s
	return a.Region(0, k, rows, cols-k), b.Region(0, 0, rows, cols-k)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
