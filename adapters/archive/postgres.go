// Package archive persists completed ranking runs to Postgres. The archive
// is optional: deployments without a DATABASE_URL simply never construct
// one.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"biophony/domain/core"
	"biophony/domain/run"
	"biophony/internal/errors"
	"biophony/ports"
)

// PostgresArchive implements ports.Archiver backed by Postgres
type PostgresArchive struct {
	db *sqlx.DB
}

var _ ports.Archiver = (*PostgresArchive)(nil)

// NewPostgresArchive creates an archive over an open connection pool
func NewPostgresArchive(db *sqlx.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

// Open connects to Postgres and verifies the connection
func Open(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.ArchiveError("failed to connect to archive database").WithCause(err)
	}
	return db, nil
}

// EnsureSchema creates the archive tables if they do not exist
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return errors.ArchiveError("failed to ensure archive schema").WithCause(err)
	}
	return nil
}

// StoreReport writes one run and its pair table in a single transaction,
// so a stored run is either fully present or absent.
func (a *PostgresArchive) StoreReport(ctx context.Context, report *run.Report) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return errors.ArchiveError("failed to serialize report").WithCause(err)
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.ArchiveError("failed to begin transaction").WithCause(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, target_count, probe_count, pair_count, fingerprint, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, report.RunID.String(), report.GeneratedAt, report.TargetCount, report.ProbeCount,
		report.PairCount(), report.Fingerprint.String(), blob)
	if err != nil {
		return errors.ArchiveError("failed to insert run").WithCause(err)
	}

	for i, p := range report.PairTable {
		s, sh := p.Similarity, p.Shift
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pair_records (run_id, rank, target_name, probe_name,
				pearson_r, pearson_p, spearman_r, spearman_p,
				mutual_info, cosine_similarity, structural_similarity, composite_score,
				best_week_shift, best_week_correlation, best_hour_shift, best_hour_correlation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`, report.RunID.String(), i, p.TargetName, p.ProbeName,
			s.PearsonR, s.PearsonP, s.SpearmanR, s.SpearmanP,
			s.MutualInfo, s.CosineSimilarity, s.StructuralSimilarity, s.CompositeScore,
			sh.BestWeekShift, sh.BestWeekCorrelation, sh.BestHourShift, sh.BestHourCorrelation)
		if err != nil {
			return errors.ArchiveError("failed to insert pair record").WithCause(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.ArchiveError("failed to commit run").WithCause(err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (a *PostgresArchive) ListRuns(ctx context.Context, limit int) ([]run.Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, generated_at, target_count, probe_count, pair_count, fingerprint
		FROM runs
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.ArchiveError("failed to list runs").WithCause(err)
	}
	defer rows.Close()

	var summaries []run.Summary
	for rows.Next() {
		var s run.Summary
		var id, fingerprint string
		if err := rows.Scan(&id, &s.GeneratedAt, &s.TargetCount, &s.ProbeCount, &s.PairCount, &fingerprint); err != nil {
			return nil, errors.ArchiveError("failed to scan run summary").WithCause(err)
		}
		s.RunID = core.RunID(id)
		s.Fingerprint = core.Fingerprint(fingerprint)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetReport loads one stored run in full
func (a *PostgresArchive) GetReport(ctx context.Context, runID core.RunID) (*run.Report, error) {
	var blob []byte
	err := a.db.GetContext(ctx, &blob, `SELECT report FROM runs WHERE id = $1`, runID.String())
	if err == sql.ErrNoRows {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.ArchiveError("failed to load run").WithCause(err)
	}

	var report run.Report
	if err := json.Unmarshal(blob, &report); err != nil {
		return nil, errors.ArchiveError("failed to deserialize report").WithCause(err)
	}
	return &report, nil
}
