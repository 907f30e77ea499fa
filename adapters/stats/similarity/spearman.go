package similarity

import "sort"

// Spearman computes Spearman's rank correlation and its two-tailed p-value
// by converting both vectors to average-fractional ranks and Pearson
// correlating the ranks. Computing rho through Pearson keeps the tie
// handling exact; the classic 6*sum(d^2) shortcut is only valid without
// ties. Constant input yields (0, 1).
func Spearman(x, y []float64) (float64, float64) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 1.0
	}

	xRanks := computeRanks(x)
	yRanks := computeRanks(y)

	return Pearson(xRanks, yRanks)
}

// computeRanks converts values to ranks, handling ties properly
func computeRanks(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return []float64{}
	}

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, val := range data {
		pairs[i] = pair{value: val, index: i}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)

	// Assign ranks, handling ties by averaging
	i := 0
	for i < n {
		j := i + 1

		// Find the end of the tie group
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}

		// Calculate average rank for this group
		groupSize := j - i
		avgRank := float64(i+1) + float64(groupSize-1)/2.0

		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}

		i = j
	}

	return ranks
}
