package submissions

import "context"

// Repo defines persistence operations for submissions.
//
// AddResult and the finalize operations must be atomic per submission: two
// concurrent calls for the same job must never lose an update.
type Repo interface {
	// CreateActive inserts a new pending submission, failing with
	// *AlreadyProcessingError when the user already has a non-terminal
	// submission of the same kind.
	CreateActive(ctx context.Context, sub Submission) error
	// GetByID returns a submission regardless of owner. Orchestrator use only.
	GetByID(ctx context.Context, jobID string) (Submission, error)
	// GetForUser returns a submission only if owned by userID; ErrNotFound
	// otherwise, so job IDs never leak across users.
	GetForUser(ctx context.Context, userID, jobID string) (Submission, error)
	// MarkProcessing transitions pending -> processing and stamps started_at.
	MarkProcessing(ctx context.Context, jobID string) error
	// AddResult appends one item result and returns the total recorded count.
	// Fails with ErrTerminal if the submission is already finalized.
	AddResult(ctx context.Context, jobID string, result ItemResult) (int, error)
	// Finalize transitions processing -> completed with the aggregate outcome.
	// Finalizing an already-terminal submission is a no-op returning the
	// stored record.
	Finalize(ctx context.Context, jobID string, outcome Outcome) (Submission, error)
	// FinalizeFailed transitions processing -> failed with a stable error
	// code. Same idempotency as Finalize.
	FinalizeFailed(ctx context.Context, jobID, code, message string) (Submission, error)
	// ListByUser returns the user's submissions newest-first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error)
}
