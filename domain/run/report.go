package run

import (
	"fmt"
	"strings"
	"time"

	"biophony/domain/core"
	"biophony/domain/pattern"
)

// Config echoes the batch settings a report was produced under, so a stored
// run can be interpreted (and replayed) without the original environment.
type Config struct {
	HourBuckets         []int   `json:"hour_buckets"`
	Aggregation         string  `json:"aggregation"`
	MultiMatchThreshold float64 `json:"multi_match_threshold"`
	TopN                int     `json:"top_n"`
}

// SignalProfile summarizes one signal's heatmap for reporting: shape, how
// much of the surface carries activity, and simple descriptives of the
// cells.
type SignalProfile struct {
	Name      string  `json:"name"`
	Role      string  `json:"role"` // "target" or "probe"
	Weeks     int     `json:"weeks"`
	Hours     int     `json:"hours"`
	FillRatio float64 `json:"fill_ratio"` // share of non-zero cells
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Median    float64 `json:"median"`
}

// Report is the complete output of one ranking run. PairTable is sorted by
// composite score descending with deterministic tie-breaks; TopMatches holds
// the first TopN entries; MultiMatchProbes maps each generalist probe to the
// sorted targets it exceeded the threshold against.
type Report struct {
	RunID            core.RunID           `json:"run_id"`
	GeneratedAt      time.Time            `json:"generated_at"`
	Config           Config               `json:"config"`
	TargetCount      int                  `json:"target_count"`
	ProbeCount       int                  `json:"probe_count"`
	PairTable        []pattern.PairRecord `json:"pair_table"`
	TopMatches       []pattern.PairRecord `json:"top_matches"`
	MultiMatchProbes map[string][]string  `json:"multi_match_probes"`
	Profiles         []SignalProfile      `json:"profiles,omitempty"`
	Fingerprint      core.Fingerprint     `json:"fingerprint"`
	RuntimeMs        int64                `json:"runtime_ms"`
}

// Top returns the first n entries of the pair table, clamped to its length.
func (r *Report) Top(n int) []pattern.PairRecord {
	if n < 0 {
		n = 0
	}
	if n > len(r.PairTable) {
		n = len(r.PairTable)
	}
	return r.PairTable[:n]
}

// PairCount returns the size of the pair table.
func (r *Report) PairCount() int {
	return len(r.PairTable)
}

// Summary is the archive listing row for one stored run.
type Summary struct {
	RunID       core.RunID       `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	TargetCount int              `json:"target_count"`
	ProbeCount  int              `json:"probe_count"`
	PairCount   int              `json:"pair_count"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
}

// ComputeFingerprint hashes the canonical text of a sorted pair table.
// Identical inputs and configuration produce byte-identical tables, so equal
// fingerprints across runs demonstrate ranking determinism.
func ComputeFingerprint(pairs []pattern.PairRecord) core.Fingerprint {
	var b strings.Builder
	for _, p := range pairs {
		s := p.Similarity
		sh := p.Shift
		fmt.Fprintf(&b, "%s|%s|%.12g|%.12g|%.12g|%.12g|%.12g|%.12g|%.12g|%.12g|%d|%.12g|%d|%.12g\n",
			p.TargetName, p.ProbeName,
			s.PearsonR, s.PearsonP, s.SpearmanR, s.SpearmanP,
			s.MutualInfo, s.CosineSimilarity, s.StructuralSimilarity, s.CompositeScore,
			sh.BestWeekShift, sh.BestWeekCorrelation, sh.BestHourShift, sh.BestHourCorrelation)
	}
	return core.NewFingerprint([]byte(b.String()))
}
