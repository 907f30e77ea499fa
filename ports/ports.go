// Package ports holds the small interfaces the application layer depends
// on. Adapters implement them; app and cmd code never imports an adapter
// type directly for these concerns.
package ports

import (
	"context"

	"biophony/domain/core"
	"biophony/domain/run"
	"biophony/domain/series"
)

// SeriesReader loads named time series from a tabular file. The engine does
// not care whether the bytes were xlsx or csv.
type SeriesReader interface {
	ReadFile(path string) (map[string]*series.TimeSeries, error)
}

// Archiver persists completed ranking runs. StoreReport must be atomic: a
// stored run is either fully present or absent.
type Archiver interface {
	StoreReport(ctx context.Context, report *run.Report) error
	ListRuns(ctx context.Context, limit int) ([]run.Summary, error)
	GetReport(ctx context.Context, runID core.RunID) (*run.Report, error)
}
