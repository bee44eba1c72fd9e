package batch

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func batchRow(processed int, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"batch_id", "total_records", "processed_records", "status", "errors", "summary", "created_at", "completed_at",
	}).AddRow("batch-1", 2, processed, status, []byte(`[]`), []byte(`{}`), time.Now().UTC(), nil)
}

func TestPGRepoRecordOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO batch_outcomes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT batch_id, total_records, processed_records").
		WillReturnRows(batchRow(1, StatusProcessing))
	mock.ExpectCommit()

	o := CaseOutcome{CaseID: "c1", Status: OutcomeSuccess, AnalysisID: "a1", RecordedAt: time.Now().UTC()}
	job, applied, err := repo.RecordOutcome(context.Background(), "batch-1", o)
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if !applied {
		t.Fatal("expected outcome to apply")
	}
	if job.ProcessedRecords != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPGRepoRecordOutcomeDuplicateSkipsAdvance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	// Conflicting insert affects zero rows; the counter must not move.
	mock.ExpectExec("INSERT INTO batch_outcomes").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT batch_id, total_records, processed_records").
		WillReturnRows(batchRow(1, StatusProcessing))
	mock.ExpectCommit()

	o := CaseOutcome{CaseID: "c1", Status: OutcomeSuccess, AnalysisID: "a1", RecordedAt: time.Now().UTC()}
	job, applied, err := repo.RecordOutcome(context.Background(), "batch-1", o)
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate to apply nothing")
	}
	if job.ProcessedRecords != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPGRepoGetBatchNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT batch_id, total_records, processed_records").
		WillReturnRows(batchRow(0, StatusProcessing))
	if _, err := repo.GetBatch(context.Background(), "batch-1"); err != nil {
		t.Fatalf("GetBatch: %v", err)
	}

	mock.ExpectQuery("SELECT batch_id, total_records, processed_records").
		WillReturnRows(sqlmock.NewRows([]string{
			"batch_id", "total_records", "processed_records", "status", "errors", "summary", "created_at", "completed_at",
		}))
	if _, err := repo.GetBatch(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoMarkFailedNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE batches").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkFailed(context.Background(), "missing", "boom"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
