package similarity

import "math"

// Cosine computes the cosine similarity between two equal length vectors on
// their raw values, no centering. A zero-norm vector (all zeros) yields 0.
// Diagnostic only: it never enters the composite score because uniformly
// positive activity surfaces inflate it.
func Cosine(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}

	var dot, normX, normY float64
	for i := range x {
		dot += x[i] * y[i]
		normX += x[i] * x[i]
		normY += y[i] * y[i]
	}

	if normX == 0 || normY == 0 {
		return 0
	}
	return dot / (math.Sqrt(normX) * math.Sqrt(normY))
}
