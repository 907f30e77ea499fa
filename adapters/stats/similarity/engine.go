// Package similarity scores pairs of week-by-hour activity surfaces with
// five complementary measures and blends four of them into one composite
// score. Every measure degrades to a neutral value on bad input; Compare
// never fails and never emits NaN, so a batch run over hundreds of pairs
// keeps every pair in the output.
package similarity

import (
	"math"

	"biophony/domain/pattern"
)

// MinValidSamples is the floor below which no measure is trustworthy: a
// comparison with fewer valid pairs after NaN cleaning returns the neutral
// result outright.
const MinValidSamples = 10

// Composite weights. Cosine similarity is reported but excluded: on the
// non-negative surfaces this engine sees it rewards shared baseline energy,
// not shared pattern.
const (
	weightPearson    = 0.4
	weightSpearman   = 0.3
	weightMutualInfo = 0.2
	weightStructural = 0.1
)

// Compare scores two activity surfaces. Shapes never have to match: both
// are cropped to the shared top-left region first, so a 20-week target and
// a 14-week probe compare over 14 weeks. Flattened values with NaN on
// either side are dropped before the vector measures run.
func Compare(h1, h2 *pattern.Heatmap) pattern.SimilarityResult {
	rows, cols := pattern.CommonShape(h1, h2)
	a := h1.Crop(rows, cols)
	b := h2.Crop(rows, cols)

	x, y := pattern.CleanPairs(a.Flatten(), b.Flatten())
	if len(x) < MinValidSamples {
		return pattern.NeutralSimilarity()
	}

	pearsonR, pearsonP := Pearson(x, y)
	spearmanR, spearmanP := Spearman(x, y)
	mutualInfo := NormalizedMutualInfo(x, y)
	cosine := Cosine(x, y)
	structural := Structural(a, b)

	composite := weightPearson*math.Abs(pearsonR) +
		weightSpearman*math.Abs(spearmanR) +
		weightMutualInfo*mutualInfo +
		weightStructural*structural

	return pattern.SimilarityResult{
		PearsonR:             pearsonR,
		PearsonP:             pearsonP,
		SpearmanR:            spearmanR,
		SpearmanP:            spearmanP,
		MutualInfo:           mutualInfo,
		CosineSimilarity:     cosine,
		StructuralSimilarity: structural,
		CompositeScore:       composite,
	}
}
