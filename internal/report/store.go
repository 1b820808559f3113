// Package report persists indexing run summaries to PostgreSQL so run
// history survives process restarts.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/textpipe/indexer/internal/pipeline"
	"github.com/textpipe/indexer/pkg/postgres"
)

// Store persists run reports in PostgreSQL.
//
// It requires the following tables:
//
//	CREATE TABLE index_runs (
//	    id          BIGSERIAL PRIMARY KEY,
//	    run_id      TEXT NOT NULL UNIQUE,
//	    mode        TEXT NOT NULL,
//	    output_dir  TEXT NOT NULL,
//	    documents   INTEGER NOT NULL,
//	    indexed     INTEGER NOT NULL,
//	    skipped     INTEGER NOT NULL,
//	    segments    INTEGER NOT NULL,
//	    elapsed_ms  BIGINT NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE index_run_failures (
//	    id      BIGSERIAL PRIMARY KEY,
//	    run_id  TEXT NOT NULL REFERENCES index_runs (run_id),
//	    op      TEXT NOT NULL,
//	    kind    TEXT NOT NULL,
//	    message TEXT NOT NULL
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a run report store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}
}

// SaveRun persists one run summary together with its per-document
// failures in a single transaction.
func (s *Store) SaveRun(ctx context.Context, runID string, stats *pipeline.RunStats) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO index_runs (run_id, mode, output_dir, documents, indexed, skipped, segments, elapsed_ms, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, stats.Mode, stats.OutputDir, stats.Documents, stats.Indexed,
			stats.Skipped, stats.Segments, stats.Elapsed.Milliseconds(), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		for _, f := range stats.Failures {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO index_run_failures (run_id, op, kind, message)
				 VALUES ($1, $2, $3, $4)`,
				runID, f.Op, f.Kind.String(), f.Message,
			)
			if err != nil {
				return fmt.Errorf("inserting run failure: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run report: %w", err)
	}

	s.logger.Info("run report saved",
		"run_id", runID,
		"documents", stats.Documents,
		"segments", stats.Segments,
		"failures", len(stats.Failures),
	)
	return nil
}

// RunSummary is one row read back from index_runs.
type RunSummary struct {
	RunID      string
	Mode       string
	OutputDir  string
	Documents  int
	Indexed    int
	Skipped    int
	Segments   int
	Elapsed    time.Duration
	FinishedAt time.Time
}

// LatestRun loads the most recent run summary. Returns nil, nil when no
// runs have been recorded yet.
func (s *Store) LatestRun(ctx context.Context) (*RunSummary, error) {
	var (
		r         RunSummary
		elapsedMS int64
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT run_id, mode, output_dir, documents, indexed, skipped, segments, elapsed_ms, finished_at
		 FROM index_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&r.RunID, &r.Mode, &r.OutputDir, &r.Documents, &r.Indexed,
		&r.Skipped, &r.Segments, &elapsedMS, &r.FinishedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &r, nil
}

// ListRuns returns the last limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT run_id, mode, output_dir, documents, indexed, skipped, segments, elapsed_ms, finished_at
		 FROM index_runs ORDER BY finished_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			elapsedMS int64
		)
		if err := rows.Scan(&r.RunID, &r.Mode, &r.OutputDir, &r.Documents, &r.Indexed,
			&r.Skipped, &r.Segments, &elapsedMS, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
