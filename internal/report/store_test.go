package report

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/textpipe/indexer/internal/pipeline"
	pkgerrors "github.com/textpipe/indexer/pkg/errors"
	"github.com/textpipe/indexer/pkg/postgres"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	store := NewStore(&postgres.Client{DB: db})
	return store, mock, func() { db.Close() }
}

func TestSaveRun(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	stats := &pipeline.RunStats{
		Mode:      pipeline.ModePipelined,
		OutputDir: "/var/index",
		Documents: 10,
		Indexed:   9,
		Skipped:   1,
		Segments:  3,
		Elapsed:   1500 * time.Millisecond,
		Failures: []pipeline.FailureRecord{
			{Op: "read", Kind: pkgerrors.KindRecoverable, Message: "read /x: no such file"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO index_runs`).
		WithArgs("run-1", pipeline.ModePipelined, "/var/index", 10, 9, 1, 3, int64(1500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO index_run_failures`).
		WithArgs("run-1", "read", "recoverable", "read /x: no such file").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.SaveRun(context.Background(), "run-1", stats); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveRun_RollsBackOnInsertError(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO index_runs`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	stats := &pipeline.RunStats{Mode: pipeline.ModePipelined}
	if err := store.SaveRun(context.Background(), "run-2", stats); err == nil {
		t.Fatal("SaveRun should fail when the insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLatestRun(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	finished := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"run_id", "mode", "output_dir", "documents", "indexed", "skipped",
		"segments", "elapsed_ms", "finished_at",
	}).AddRow("run-9", pipeline.ModeSingleThreaded, "/var/index", 4, 4, 0, 2, int64(250), finished)

	mock.ExpectQuery(`SELECT .+ FROM index_runs ORDER BY finished_at DESC LIMIT 1`).
		WillReturnRows(rows)

	got, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got == nil {
		t.Fatal("LatestRun returned nil for an existing row")
	}
	if got.RunID != "run-9" || got.Segments != 2 {
		t.Errorf("summary = %+v, want run-9 with 2 segments", got)
	}
	if got.Elapsed != 250*time.Millisecond {
		t.Errorf("Elapsed = %v, want 250ms", got.Elapsed)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestLatestRun_NoRuns(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT .+ FROM index_runs`).
		WillReturnError(sql.ErrNoRows)

	got, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got != nil {
		t.Errorf("LatestRun = %+v, want nil when no runs exist", got)
	}
}

func TestListRuns(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"run_id", "mode", "output_dir", "documents", "indexed", "skipped",
		"segments", "elapsed_ms", "finished_at",
	}).
		AddRow("run-2", pipeline.ModePipelined, "/var/index", 8, 8, 0, 3, int64(900), now).
		AddRow("run-1", pipeline.ModePipelined, "/var/index", 5, 5, 0, 1, int64(400), now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT .+ FROM index_runs ORDER BY finished_at DESC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(rows)

	runs, err := store.ListRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d rows, want 2", len(runs))
	}
	if runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Errorf("runs out of order: %+v", runs)
	}
}
