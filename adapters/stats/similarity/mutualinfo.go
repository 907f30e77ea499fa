package similarity

import (
	"math"

	"github.com/montanaflynn/stats"
)

// numBins is fixed by the quartile scheme.
const numBins = 4

// NormalizedMutualInfo estimates the mutual information between two vectors
// after discretizing each one independently into quartile bins, then
// normalizes by the arithmetic mean of the marginal entropies so the score
// lands in [0, 1]. Any degeneracy (constant input, percentile failure)
// yields 0.
func NormalizedMutualInfo(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	xBins, ok := discretizeQuartiles(x)
	if !ok {
		return 0
	}
	yBins, ok := discretizeQuartiles(y)
	if !ok {
		return 0
	}

	hX := entropy(xBins)
	hY := entropy(yBins)
	if hX == 0 || hY == 0 {
		return 0
	}
	hXY := jointEntropy(xBins, yBins)

	// Mutual Information: I(X;Y) = H(X) + H(Y) - H(X,Y)
	mi := math.Max(0, hX+hY-hXY)

	nmi := mi / ((hX + hY) / 2)
	if nmi > 1 {
		nmi = 1
	}
	return nmi
}

// discretizeQuartiles maps each value to one of four bins split at the
// 25th, 50th and 75th percentiles of its own vector. Identical vectors
// therefore always land in identical bins regardless of scale.
func discretizeQuartiles(data []float64) ([]int, bool) {
	thresholds := make([]float64, 0, 3)
	for _, percent := range []float64{25, 50, 75} {
		q, err := stats.Percentile(data, percent)
		if err != nil || math.IsNaN(q) {
			return nil, false
		}
		thresholds = append(thresholds, q)
	}

	bins := make([]int, len(data))
	for i, val := range data {
		bin := 0
		for _, threshold := range thresholds {
			if val > threshold {
				bin++
			}
		}
		bins[i] = bin
	}
	return bins, true
}

// entropy calculates Shannon entropy of a binned variable. Counts live in a
// fixed-size array so the sum always accumulates in the same order; repeated
// runs must reproduce scores bit for bit.
func entropy(bins []int) float64 {
	if len(bins) == 0 {
		return 0
	}

	var counts [numBins]int
	for _, bin := range bins {
		counts[bin]++
	}

	h := 0.0
	n := float64(len(bins))
	for _, count := range counts {
		if count > 0 {
			p := float64(count) / n
			h -= p * math.Log2(p)
		}
	}
	return h
}

// jointEntropy calculates joint entropy H(X,Y) over the bin pairs.
func jointEntropy(xBins, yBins []int) float64 {
	if len(xBins) != len(yBins) || len(xBins) == 0 {
		return 0
	}

	var jointCounts [numBins * numBins]int
	for i := range xBins {
		jointCounts[xBins[i]*numBins+yBins[i]]++
	}

	h := 0.0
	n := float64(len(xBins))
	for _, count := range jointCounts {
		if count > 0 {
			p := float64(count) / n
			h -= p * math.Log2(p)
		}
	}
	return h
}
