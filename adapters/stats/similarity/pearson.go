package similarity

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson computes the Pearson correlation coefficient between two equal
// length vectors and its two-tailed p-value. Zero variance in either vector
// yields (0, 1) rather than an error; the engine treats that as numeric
// degeneracy, not failure.
func Pearson(x, y []float64) (float64, float64) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, 1.0
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}

	denominator := math.Sqrt(sumXX * sumYY)
	if denominator == 0 {
		return 0, 1.0
	}

	r := sumXY / denominator

	// Clamp to [-1, 1] range (due to floating point precision)
	if r > 1.0 {
		r = 1.0
	} else if r < -1.0 {
		r = -1.0
	}

	return r, correlationPValue(r, n)
}

// correlationPValue converts a correlation coefficient into a two-tailed
// p-value using the exact Student's t distribution with n-2 degrees of
// freedom: t = r * sqrt((n-2)/(1-r^2)).
func correlationPValue(r float64, n int) float64 {
	if n < 3 {
		return 1.0
	}

	df := float64(n - 2)
	denom := 1 - r*r
	if denom <= 0 {
		// |r| == 1: the t statistic diverges and the tail mass vanishes.
		return 0
	}

	t := r * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p
}
