package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoSaveCase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO medical_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	hr := 88
	c := PatientCase{
		ID: "11111111-1111-1111-1111-111111111111",
		Patient: Patient{
			PatientID:          "p1",
			Name:               "Test Patient",
			Age:                41,
			Gender:             "male",
			MedicalHistory:     []string{"asthma"},
			Allergies:          []string{},
			CurrentMedications: []string{},
		},
		Symptoms: Symptoms{
			Primary:  []string{"cough"},
			Severity: "mild",
		},
		Vitals:    &VitalSigns{HeartRate: &hr},
		CreatedAt: time.Now().UTC(),
	}

	if err := repo.SaveCase(context.Background(), c); err != nil {
		t.Fatalf("SaveCase: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPGRepoSaveCaseRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	c := PatientCase{
		ID:      "22222222-2222-2222-2222-222222222222",
		Patient: Patient{PatientID: "p2", Name: "x", Age: 30, Gender: "female"},
	}
	if err := repo.SaveCase(context.Background(), c); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPGRepoGetCaseNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM medical_records").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetCase(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
