package submissions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores submissions in memory and is safe for concurrent use.
// One mutex serializes all mutations, which also gives the per-submission
// ingestion ordering the orchestrator relies on.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Submission
	byUser map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Submission),
		byUser: make(map[string][]string),
	}
}

// CreateActive inserts a pending submission unless the user already has an
// active one of the same kind.
func (r *MemoryRepo) CreateActive(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.byUser[sub.UserID] {
		existing := r.byID[id]
		if existing.Kind == sub.Kind && !existing.Terminal() {
			return &AlreadyProcessingError{JobID: existing.ID}
		}
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.byID[sub.ID] = sub
	r.byUser[sub.UserID] = append(r.byUser[sub.UserID], sub.ID)
	return nil
}

// GetByID returns a submission by job ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byID[jobID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return cloneSubmission(sub), nil
}

// GetForUser returns a submission only if owned by userID.
func (r *MemoryRepo) GetForUser(ctx context.Context, userID, jobID string) (Submission, error) {
	sub, err := r.GetByID(ctx, jobID)
	if err != nil {
		return Submission{}, err
	}
	if sub.UserID != userID {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

// MarkProcessing transitions pending -> processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if sub.Status != StatusPending {
		return fmt.Errorf("mark processing: submission %s is %s", jobID, sub.Status)
	}
	now := time.Now().UTC()
	sub.Status = StatusProcessing
	sub.StartedAt = &now
	sub.UpdatedAt = now
	r.byID[jobID] = sub
	return nil
}

// AddResult appends one item result and returns the recorded count.
func (r *MemoryRepo) AddResult(ctx context.Context, jobID string, result ItemResult) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[jobID]
	if !ok {
		return 0, ErrNotFound
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
	sub.Results = append(sub.Results, result)
	sub.UpdatedAt = time.Now().UTC()
	r.byID[jobID] = sub
	return len(sub.Results), nil
}

// Finalize transitions processing -> completed. No-op if already terminal.
func (r *MemoryRepo) Finalize(ctx context.Context, jobID string, outcome Outcome) (Submission, error) {
	return r.finalize(ctx, jobID, StatusCompleted, &outcome, "", "")
}

// FinalizeFailed transitions processing -> failed. No-op if already terminal.
func (r *MemoryRepo) FinalizeFailed(ctx context.Context, jobID, code, message string) (Submission, error) {
	return r.finalize(ctx, jobID, StatusFailed, nil, code, message)
}

func (r *MemoryRepo) finalize(ctx context.Context, jobID, status string, outcome *Outcome, code, message string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[jobID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if sub.Terminal() {
		return cloneSubmission(sub), nil
	}
	now := time.Now().UTC()
	sub.Status = status
	sub.Outcome = outcome
	sub.ErrorCode = code
	sub.ErrorMessage = message
	sub.CompletedAt = &now
	sub.UpdatedAt = now
	r.byID[jobID] = sub
	return cloneSubmission(sub), nil
}

// ListByUser returns submissions for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	ids := r.byUser[userID]
	subs := make([]Submission, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, cloneSubmission(r.byID[id]))
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	if offset >= len(subs) {
		return []Submission{}, nil
	}
	end := len(subs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return subs[offset:end], nil
}

func hasItem(items []Item, exerciseType string) bool {
	for _, item := range items {
		if item.ExerciseType == exerciseType {
			return true
		}
	}
	return false
}

func cloneSubmission(sub Submission) Submission {
	out := sub
	out.Items = append([]Item(nil), sub.Items...)
	out.Results = append([]ItemResult(nil), sub.Results...)
	if sub.Outcome != nil {
		outcome := *sub.Outcome
		if sub.Outcome.Fitness != nil {
			fitness := *sub.Outcome.Fitness
			fitness.Recommendations = append([]string(nil), fitness.Recommendations...)
			outcome.Fitness = &fitness
		}
		if sub.Outcome.Verification != nil {
			verification := *sub.Outcome.Verification
			verification.NextSteps = append([]string(nil), verification.NextSteps...)
			outcome.Verification = &verification
		}
		out.Outcome = &outcome
	}
	return out
}
