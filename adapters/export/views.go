package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"biophony/domain/core"
	"biophony/domain/pattern"
	"biophony/domain/run"
	"biophony/internal/errors"
)

// Manifest describes a set of paginated pair-table views, so a consumer
// can fetch pages without loading the whole table.
type Manifest struct {
	RunID       core.RunID           `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Fingerprint core.Fingerprint     `json:"fingerprint"`
	PairCount   int                  `json:"pair_count"`
	PageSize    int                  `json:"page_size"`
	PageCount   int                  `json:"page_count"`
	Pages       []string             `json:"pages"`
	TopMatches  []pattern.PairRecord `json:"top_matches"`
	MultiMatch  map[string][]string  `json:"multi_match_probes"`
}

// page is one fixed-size slice of the pair table.
type page struct {
	Page  int                  `json:"page"`
	Pairs []pattern.PairRecord `json:"pairs"`
}

// WriteViews writes manifest.json plus pairs_0001.json... under dir. Page
// size must be positive; the last page may be short. An empty table still
// produces a manifest with zero pages.
func WriteViews(dir string, report *run.Report, pageSize int) error {
	if pageSize < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("view page size %d must be at least 1", pageSize))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.ExportFailed(dir, err)
	}

	total := len(report.PairTable)
	pageCount := (total + pageSize - 1) / pageSize

	manifest := Manifest{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		Fingerprint: report.Fingerprint,
		PairCount:   total,
		PageSize:    pageSize,
		PageCount:   pageCount,
		Pages:       make([]string, 0, pageCount),
		TopMatches:  report.TopMatches,
		MultiMatch:  report.MultiMatchProbes,
	}

	for i := 0; i < pageCount; i++ {
		lo := i * pageSize
		hi := lo + pageSize
		if hi > total {
			hi = total
		}

		name := fmt.Sprintf("pairs_%04d.json", i+1)
		if err := writeJSON(filepath.Join(dir, name), page{Page: i + 1, Pairs: report.PairTable[lo:hi]}); err != nil {
			return err
		}
		manifest.Pages = append(manifest.Pages, name)
	}

	return writeJSON(filepath.Join(dir, "manifest.json"), manifest)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.ExportFailed(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ExportFailed(path, err)
	}
	return nil
}
