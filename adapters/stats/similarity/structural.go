package similarity

import (
	"math"

	"biophony/domain/pattern"
)

// stdEpsilon keeps the z-normalization denominator alive on flat matrices.
const stdEpsilon = 1e-10

// Structural scores how similar the spatial layout of two same-shape
// activity surfaces is: z-normalize each matrix cell-wise, take the mean
// squared error between the normalized matrices, fold it into 1/(1+mse).
// Identical layouts score 1 and diverging layouts decay toward 0. Cells
// that are not finite in both matrices are left out of the error.
func Structural(a, b *pattern.Heatmap) float64 {
	if a.IsEmpty() || b.IsEmpty() || a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return 0
	}

	na := zNormalize(a.Values)
	nb := zNormalize(b.Values)

	var sum float64
	count := 0
	for i := range na {
		for j := range na[i] {
			if !isFinite(na[i][j]) || !isFinite(nb[i][j]) {
				continue
			}
			diff := na[i][j] - nb[i][j]
			sum += diff * diff
			count++
		}
	}
	if count == 0 {
		return 0
	}

	mse := sum / float64(count)
	return 1 / (1 + mse)
}

// zNormalize maps each finite cell to (x - mean) / (std + epsilon) using the
// population standard deviation over the finite cells. A flat matrix
// normalizes to all zeros instead of dividing by zero.
func zNormalize(values [][]float64) [][]float64 {
	var sum float64
	count := 0
	for _, row := range values {
		for _, v := range row {
			if isFinite(v) {
				sum += v
				count++
			}
		}
	}
	if count == 0 {
		return values
	}
	mean := sum / float64(count)

	var sqSum float64
	for _, row := range values {
		for _, v := range row {
			if isFinite(v) {
				diff := v - mean
				sqSum += diff * diff
			}
		}
	}
	std := math.Sqrt(sqSum / float64(count))

	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if isFinite(v) {
				out[i][j] = (v - mean) / (std + stdEpsilon)
			} else {
				out[i][j] = math.NaN()
			}
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
