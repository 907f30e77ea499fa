package archive

// DDL for the run archive. Idempotent so EnsureSchema can run at every
// startup. The full report JSON is kept on the run row; pair_records holds
// the flat table for SQL-side querying.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    generated_at  TIMESTAMPTZ NOT NULL,
    target_count  INTEGER NOT NULL,
    probe_count   INTEGER NOT NULL,
    pair_count    INTEGER NOT NULL,
    fingerprint   TEXT NOT NULL,
    report        JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pair_records (
    run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    rank                  INTEGER NOT NULL,
    target_name           TEXT NOT NULL,
    probe_name            TEXT NOT NULL,
    pearson_r             DOUBLE PRECISION NOT NULL,
    pearson_p             DOUBLE PRECISION NOT NULL,
    spearman_r            DOUBLE PRECISION NOT NULL,
    spearman_p            DOUBLE PRECISION NOT NULL,
    mutual_info           DOUBLE PRECISION NOT NULL,
    cosine_similarity     DOUBLE PRECISION NOT NULL,
    structural_similarity DOUBLE PRECISION NOT NULL,
    composite_score       DOUBLE PRECISION NOT NULL,
    best_week_shift       INTEGER NOT NULL,
    best_week_correlation DOUBLE PRECISION NOT NULL,
    best_hour_shift       INTEGER NOT NULL,
    best_hour_correlation DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_pair_records_composite
    ON pair_records (run_id, composite_score DESC);
`
