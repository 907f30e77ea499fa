// Package export serializes completed ranking reports: a flat CSV of the
// pair table, a full JSON report, and paginated JSON views for large
// tables. Plotting and dashboards live elsewhere; this package only writes
// the structures they consume.
package export

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"biophony/domain/run"
	"biophony/internal/errors"
)

var pairTableHeader = []string{
	"target_name", "probe_name",
	"pearson_r", "pearson_p", "spearman_r", "spearman_p",
	"mutual_info", "cosine_similarity", "structural_similarity", "composite_score",
	"best_week_shift", "best_week_correlation", "best_hour_shift", "best_hour_correlation",
}

// WritePairTableCSV writes one row per pair record, in table order.
func WritePairTableCSV(path string, report *run.Report) error {
	start := time.Now()

	file, err := os.Create(path)
	if err != nil {
		return errors.ExportFailed(path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(pairTableHeader); err != nil {
		return errors.ExportFailed(path, err)
	}

	for _, p := range report.PairTable {
		s, sh := p.Similarity, p.Shift
		record := []string{
			p.TargetName, p.ProbeName,
			formatFloat(s.PearsonR), formatFloat(s.PearsonP),
			formatFloat(s.SpearmanR), formatFloat(s.SpearmanP),
			formatFloat(s.MutualInfo), formatFloat(s.CosineSimilarity),
			formatFloat(s.StructuralSimilarity), formatFloat(s.CompositeScore),
			strconv.Itoa(sh.BestWeekShift), formatFloat(sh.BestWeekCorrelation),
			strconv.Itoa(sh.BestHourShift), formatFloat(sh.BestHourCorrelation),
		}
		if err := w.Write(record); err != nil {
			return errors.ExportFailed(path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.ExportFailed(path, err)
	}

	log.Printf("[Export] %s: %d pairs written in %d ms",
		filepath.Base(path), len(report.PairTable), time.Since(start).Milliseconds())
	return nil
}

// WriteReportJSON writes the whole report, fingerprint and profiles
// included.
func WriteReportJSON(path string, report *run.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.ExportFailed(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ExportFailed(path, err)
	}
	log.Printf("[Export] %s: report %s written", filepath.Base(path), report.RunID)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}
