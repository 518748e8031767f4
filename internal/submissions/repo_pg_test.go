package submissions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func submissionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "kind", "status", "items", "results", "outcome",
		"error_code", "error_message", "created_at", "started_at",
		"completed_at", "updated_at",
	})
}

func TestPGRepoCreateActiveInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	sub := Submission{
		ID:        "job-1",
		UserID:    "user-1",
		Kind:      KindFitnessTest,
		Status:    StatusPending,
		Items:     []Item{{ExerciseType: "pushup", VideoKey: "u1/pushup.mp4"}},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM submissions").
		WithArgs(sub.UserID, sub.Kind, StatusPending, StatusProcessing).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sub.ID, sub.UserID, sub.Kind, sub.Status, sqlmock.AnyArg(), sub.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateActive(context.Background(), sub); err != nil {
		t.Fatalf("CreateActive: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateActiveConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM submissions").
		WithArgs("user-1", KindFitnessTest, StatusPending, StatusProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-existing"))
	mock.ExpectRollback()

	err = repo.CreateActive(context.Background(), Submission{
		ID:     "job-2",
		UserID: "user-1",
		Kind:   KindFitnessTest,
		Status: StatusPending,
	})
	var ape *AlreadyProcessingError
	if !errors.As(err, &ape) {
		t.Fatalf("expected AlreadyProcessingError, got %v", err)
	}
	if ape.JobID != "job-existing" {
		t.Fatalf("expected existing job ID, got %q", ape.JobID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateActiveUniqueRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	sub := Submission{
		ID:        "job-loser",
		UserID:    "user-1",
		Kind:      KindFitnessTest,
		Status:    StatusPending,
		Items:     []Item{{ExerciseType: "pushup", VideoKey: "u1/pushup.mp4"}},
		CreatedAt: time.Now().UTC(),
	}

	// Both creates pass the FOR UPDATE check; this one loses the insert race
	// on the active-submission unique index.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM submissions").
		WithArgs(sub.UserID, sub.Kind, StatusPending, StatusProcessing).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sub.ID, sub.UserID, sub.Kind, sub.Status, sqlmock.AnyArg(), sub.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_submissions_active"})
	mock.ExpectQuery("SELECT id FROM submissions").
		WithArgs(sub.UserID, sub.Kind, StatusPending, StatusProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-winner"))
	mock.ExpectRollback()

	err = repo.CreateActive(context.Background(), sub)
	var ape *AlreadyProcessingError
	if !errors.As(err, &ape) {
		t.Fatalf("expected AlreadyProcessingError, got %v", err)
	}
	if ape.JobID != "job-winner" {
		t.Fatalf("expected winning job ID, got %q", ape.JobID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT").
		WithArgs("job-missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "job-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoAddResultRejectsTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs("job-1").
		WillReturnRows(submissionRows().AddRow(
			"job-1", "user-1", KindFitnessTest, StatusCompleted,
			[]byte(`[{"exerciseType":"pushup","videoKey":"v"}]`), []byte(`[]`),
			nil, nil, nil, now, now, now, now,
		))
	mock.ExpectRollback()

	_, err = repo.AddResult(context.Background(), "job-1", ItemResult{ExerciseType: "pushup", Success: true})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFinalizeFailedIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	// Already completed: no update statement should run.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs("job-1").
		WillReturnRows(submissionRows().AddRow(
			"job-1", "user-1", KindFitnessTest, StatusCompleted,
			[]byte(`[]`), []byte(`[]`),
			nil, nil, nil, now, now, now, now,
		))
	mock.ExpectCommit()

	sub, err := repo.FinalizeFailed(context.Background(), "job-1", ErrorCodeTimeout, "timed out")
	if err != nil {
		t.Fatalf("FinalizeFailed: %v", err)
	}
	if sub.Status != StatusCompleted {
		t.Fatalf("expected the prior completed status preserved, got %q", sub.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserScopesAndOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("user-1", 20, 0).
		WillReturnRows(submissionRows().
			AddRow("job-2", "user-1", KindFitnessTest, StatusCompleted,
				[]byte(`[]`), []byte(`[]`), nil, nil, nil, now, now, now, now).
			AddRow("job-1", "user-1", KindFitnessTest, StatusFailed,
				[]byte(`[]`), []byte(`[]`), nil, "timeout", "timed out",
				now.Add(-time.Hour), now, now, now))

	subs, err := repo.ListByUser(context.Background(), "user-1", 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].ID != "job-2" || subs[1].ID != "job-1" {
		t.Fatalf("expected newest first, got %s then %s", subs[0].ID, subs[1].ID)
	}
	if subs[1].ErrorCode != "timeout" {
		t.Fatalf("expected error code carried through, got %q", subs[1].ErrorCode)
	}
}
