package pattern

// SimilarityResult holds the five similarity measures and the composite
// score for one heatmap pair. Every field defaults to 0 (p-values to 1) when
// a measure cannot be computed; a result never contains NaN.
type SimilarityResult struct {
	PearsonR             float64 `json:"pearson_r"`
	PearsonP             float64 `json:"pearson_p"`
	SpearmanR            float64 `json:"spearman_r"`
	SpearmanP            float64 `json:"spearman_p"`
	MutualInfo           float64 `json:"mutual_info"`
	CosineSimilarity     float64 `json:"cosine_similarity"`
	StructuralSimilarity float64 `json:"structural_similarity"`
	CompositeScore       float64 `json:"composite_score"`
}

// NeutralSimilarity is the explicit insufficient-data result: zero effect
// everywhere, p-values at 1. Returning it is an edge-case policy, not an
// error.
func NeutralSimilarity() SimilarityResult {
	return SimilarityResult{PearsonP: 1, SpearmanP: 1}
}

// ShiftResult records, per axis, the bounded integer offset whose Pearson
// correlation had the largest absolute value, with the sign of that
// correlation preserved. A positive shift means the probe pattern trails
// the target pattern by that many weeks or hour buckets.
type ShiftResult struct {
	BestWeekShift       int     `json:"best_week_shift"`
	BestWeekCorrelation float64 `json:"best_week_correlation"`
	BestHourShift       int     `json:"best_hour_shift"`
	BestHourCorrelation float64 `json:"best_hour_correlation"`
}

// PairRecord is the atomic ranked unit: one (target, probe) combination
// scored once per batch run and never mutated afterwards.
type PairRecord struct {
	TargetName string           `json:"target_name"`
	ProbeName  string           `json:"probe_name"`
	Similarity SimilarityResult `json:"similarity"`
	Shift      ShiftResult      `json:"shift"`
}
