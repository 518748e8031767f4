package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres. Items, results, and outcome live in
// JSONB columns; per-submission mutations take a row lock so concurrent
// ingestion never loses an update.
type PGRepo struct {
	DB *sql.DB
}

const submissionColumns = `
id, user_id, kind, status, items, results, outcome, error_code, error_message,
created_at, started_at, completed_at, updated_at`

// CreateActive inserts a pending submission unless the user already has an
// active one of the same kind. A partial unique index on (user_id, kind)
// backstops the check under concurrent creates.
func (r *PGRepo) CreateActive(ctx context.Context, sub Submission) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `
SELECT id FROM submissions
WHERE user_id = $1 AND kind = $2 AND status IN ($3, $4)
FOR UPDATE`, sub.UserID, sub.Kind, StatusPending, StatusProcessing).Scan(&existingID)
	if err == nil {
		return &AlreadyProcessingError{JobID: existingID}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	itemsPayload, err := json.Marshal(sub.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO submissions (id, user_id, kind, status, items, results, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, '[]'::jsonb, $6, $6)`,
		sub.ID, sub.UserID, sub.Kind, sub.Status, itemsPayload, sub.CreatedAt,
	); err != nil {
		// Two first-creates can both pass the FOR UPDATE check; the loser
		// trips the partial unique index and reports the winner's job.
		if isUniqueViolation(err) {
			var winnerID string
			if qerr := r.DB.QueryRowContext(ctx, `
SELECT id FROM submissions
WHERE user_id = $1 AND kind = $2 AND status IN ($3, $4)`,
				sub.UserID, sub.Kind, StatusPending, StatusProcessing,
			).Scan(&winnerID); qerr == nil {
				return &AlreadyProcessingError{JobID: winnerID}
			}
			return err
		}
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetByID returns a submission by job ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Submission, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
WHERE id = $1
LIMIT 1`, jobID)
	return scanSubmission(row)
}

// GetForUser returns a submission only if owned by userID.
func (r *PGRepo) GetForUser(ctx context.Context, userID, jobID string) (Submission, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
WHERE id = $1 AND user_id = $2
LIMIT 1`, jobID, userID)
	return scanSubmission(row)
}

// MarkProcessing transitions pending -> processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, jobID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE submissions
SET status = $2, started_at = $3, updated_at = $3
WHERE id = $1 AND status = $4`,
		jobID, StatusProcessing, time.Now().UTC(), StatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("mark processing: submission %s not pending", jobID)
	}
	return nil
}

// AddResult appends one item result under a row lock and returns the count.
func (r *PGRepo) AddResult(ctx context.Context, jobID string, result ItemResult) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	sub, err := lockSubmission(ctx, tx, jobID)
	if err != nil {
		return 0, err
	}
	if sub.Terminal() {
		return 0, ErrTerminal
	}
	if !hasItem(sub.Items, result.ExerciseType) {
		return 0, fmt.Errorf("add result: exercise %q not in submission %s", result.ExerciseType, jobID)
	}
	if _, dup := sub.Result(result.ExerciseType); dup {
		return 0, fmt.Errorf("add result: duplicate result for %q in submission %s", result.ExerciseType, jobID)
	}

	results := append(sub.Results, result)
	payload, err := json.Marshal(results)
	if err != nil {
		return 0, fmt.Errorf("marshal results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE submissions SET results = $2, updated_at = $3 WHERE id = $1`,
		jobID, payload, time.Now().UTC(),
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(results), nil
}

// Finalize transitions processing -> completed. No-op if already terminal.
func (r *PGRepo) Finalize(ctx context.Context, jobID string, outcome Outcome) (Submission, error) {
	return r.finalize(ctx, jobID, StatusCompleted, &outcome, "", "")
}

// FinalizeFailed transitions processing -> failed. No-op if already terminal.
func (r *PGRepo) FinalizeFailed(ctx context.Context, jobID, code, message string) (Submission, error) {
	return r.finalize(ctx, jobID, StatusFailed, nil, code, message)
}

func (r *PGRepo) finalize(ctx context.Context, jobID, status string, outcome *Outcome, code, message string) (Submission, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Submission{}, err
	}
	defer tx.Rollback()

	sub, err := lockSubmission(ctx, tx, jobID)
	if err != nil {
		return Submission{}, err
	}
	if sub.Terminal() {
		if err := tx.Commit(); err != nil {
			return Submission{}, err
		}
		return sub, nil
	}

	var outcomePayload any
	if outcome != nil {
		data, err := json.Marshal(outcome)
		if err != nil {
			return Submission{}, fmt.Errorf("marshal outcome: %w", err)
		}
		outcomePayload = data
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE submissions
SET status = $2, outcome = $3, error_code = $4, error_message = $5,
    completed_at = $6, updated_at = $6
WHERE id = $1`,
		jobID, status, outcomePayload, nullString(code), nullString(message), now,
	); err != nil {
		return Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return Submission{}, err
	}

	sub.Status = status
	sub.Outcome = outcome
	sub.ErrorCode = code
	sub.ErrorMessage = message
	sub.CompletedAt = &now
	sub.UpdatedAt = now
	return sub, nil
}

// ListByUser returns submissions for a user, newest first, with limit/offset.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var sub Submission
	var items, results []byte
	var outcome sql.NullString
	var errorCode, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Kind, &sub.Status, &items, &results,
		&outcome, &errorCode, &errorMessage,
		&sub.CreatedAt, &startedAt, &completedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &sub.Items); err != nil {
			return Submission{}, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &sub.Results); err != nil {
			return Submission{}, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if outcome.Valid && outcome.String != "" {
		var parsed Outcome
		if err := json.Unmarshal([]byte(outcome.String), &parsed); err != nil {
			return Submission{}, fmt.Errorf("unmarshal outcome: %w", err)
		}
		sub.Outcome = &parsed
	}
	if errorCode.Valid {
		sub.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		sub.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		sub.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		sub.CompletedAt = &t
	}
	return sub, nil
}

func lockSubmission(ctx context.Context, tx *sql.Tx, jobID string) (Submission, error) {
	row := tx.QueryRowContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
WHERE id = $1
FOR UPDATE`, jobID)
	return scanSubmission(row)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
