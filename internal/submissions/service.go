package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"repstack-backend/internal/shared/metrics"
	"repstack-backend/internal/shared/storage/object"
	"repstack-backend/internal/shared/telemetry"
	"repstack-backend/internal/standards"
	"repstack-backend/internal/users"
	"repstack-backend/internal/vision"
)

const (
	defaultMaxConcurrent = 8
	defaultWatchdog      = 5 * time.Minute
)

// Service orchestrates submissions: it creates the record, fans out one
// analyzer call per video through a shared concurrency limiter, ingests
// results one at a time, and finalizes with the aggregate outcome.
type Service struct {
	Repo      Repo
	Standards standards.Repo
	Users     *users.Service
	Vision    vision.Client
	Videos    object.VideoStore

	// limiter caps concurrent analyzer calls across all submissions so a
	// burst of batches cannot overload the vision service. Buffered-channel
	// acquisition is FIFO-fair enough: no submission can starve another.
	limiter  chan struct{}
	watchdog time.Duration
}

// NewService constructs a Service. maxConcurrent and watchdog fall back to
// defaults when non-positive.
func NewService(repo Repo, ref standards.Repo, usersSvc *users.Service, visionClient vision.Client, videos object.VideoStore, maxConcurrent int, watchdog time.Duration) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if watchdog <= 0 {
		watchdog = defaultWatchdog
	}
	return &Service{
		Repo:      repo,
		Standards: ref,
		Users:     usersSvc,
		Vision:    visionClient,
		Videos:    videos,
		limiter:   make(chan struct{}, maxConcurrent),
		watchdog:  watchdog,
	}
}

// Create validates and admits a new submission, dispatches its analysis, and
// returns the record in processing state. The submission is never left in
// pending beyond this call.
func (s *Service) Create(ctx context.Context, userID, kind string, items []Item) (Submission, error) {
	if userID == "" {
		return Submission{}, &ValidationError{Reason: "userID is required"}
	}
	if err := validateCreate(kind, items); err != nil {
		return Submission{}, err
	}

	sub := Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Status:    StatusPending,
		Items:     items,
		Results:   []ItemResult{},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Repo.CreateActive(ctx, sub); err != nil {
		return Submission{}, err
	}

	if err := s.Repo.MarkProcessing(ctx, sub.ID); err != nil {
		_, _ = s.Repo.FinalizeFailed(context.Background(), sub.ID, ErrorCodeInternal, sanitizeError(err))
		return Submission{}, fmt.Errorf("dispatch submission: %w", err)
	}
	sub.Status = StatusProcessing

	metrics.IncSubmissionStarted()
	telemetry.Info("submission.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"job_id":            sub.ID,
		"kind":              kind,
		"items":             len(items),
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	go s.run(backgroundWithRequestID(ctx), sub)

	return sub, nil
}

// Get returns a submission snapshot scoped to the requesting user.
func (s *Service) Get(ctx context.Context, userID, jobID string) (Submission, error) {
	if jobID == "" {
		return Submission{}, errors.New("jobID is required")
	}
	return s.Repo.GetForUser(ctx, userID, jobID)
}

// List returns the user's submissions ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func validateCreate(kind string, items []Item) error {
	if kind != KindFitnessTest && kind != KindLevelVerification {
		return &ValidationError{Reason: fmt.Sprintf("unknown submission kind %q", kind)}
	}
	if len(items) == 0 {
		return &ValidationError{Reason: "items must not be empty"}
	}
	if len(items) > MaxItems {
		return &ValidationError{Reason: fmt.Sprintf("items exceed the maximum of %d", MaxItems)}
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ExerciseType == "" {
			return &ValidationError{Reason: "exerciseType is required"}
		}
		if item.VideoKey == "" {
			return &ValidationError{Reason: "videoKey is required"}
		}
		if _, dup := seen[item.ExerciseType]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate exercise type %q", item.ExerciseType)}
		}
		seen[item.ExerciseType] = struct{}{}
	}
	return nil
}

// run is the per-submission collector. It owns all ingestion for its
// submission, so result writes are serialized without any cross-submission
// lock.
func (s *Service) run(ctx context.Context, sub Submission) {
	startedAt := time.Now().UTC()
	defer func() {
		if rec := recover(); rec != nil {
			s.fail(ctx, sub, startedAt, ErrorCodeInternal, fmt.Sprintf("panic: %v", rec))
		}
	}()

	analyzer := newSafeAnalyzer(s.Vision, sub.ID, requestIDFromContext(ctx))
	resultCh := make(chan ItemResult, len(sub.Items))

	for _, item := range sub.Items {
		go func(item Item) {
			s.limiter <- struct{}{}
			result := s.analyzeItem(ctx, analyzer, item)
			<-s.limiter

			// Cost control: the raw video is released once analyzed,
			// success or failure, regardless of the batch outcome.
			s.releaseVideo(ctx, sub.ID, item.VideoKey)

			resultCh <- result
		}(item)
	}

	watchdog := time.NewTimer(s.watchdog)
	defer watchdog.Stop()

	for received := 0; received < len(sub.Items); received++ {
		select {
		case result := <-resultCh:
			count, err := s.Repo.AddResult(ctx, sub.ID, result)
			if errors.Is(err, ErrTerminal) {
				// Watchdog or a fault already finalized this submission;
				// late results are dropped.
				return
			}
			if err != nil {
				s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
				return
			}
			if count == len(sub.Items) {
				s.finish(ctx, sub, startedAt)
				return
			}
		case <-watchdog.C:
			s.fail(ctx, sub, startedAt, ErrorCodeTimeout, "timed out waiting for analysis results")
			return
		}
	}
}

func (s *Service) analyzeItem(ctx context.Context, analyzer safeAnalyzer, item Item) ItemResult {
	videoURL, err := s.Videos.SignedURL(ctx, item.VideoKey)
	if err != nil {
		return ItemResult{
			ExerciseType: item.ExerciseType,
			Success:      false,
			Error:        sanitizeError(fmt.Errorf("resolve video: %w", err)),
		}
	}
	return analyzer.analyze(ctx, item.ExerciseType, videoURL)
}

func (s *Service) releaseVideo(ctx context.Context, jobID, videoKey string) {
	if err := s.Videos.Delete(ctx, videoKey); err != nil {
		telemetry.Warn("video.release_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"job_id":     jobID,
			"video_key":  videoKey,
			"error":      sanitizeError(err),
		})
	}
}

// finish aggregates the full result set and finalizes the submission.
func (s *Service) finish(ctx context.Context, sub Submission, startedAt time.Time) {
	current, err := s.Repo.GetByID(ctx, sub.ID)
	if err != nil {
		s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
		return
	}

	var outcome Outcome
	switch sub.Kind {
	case KindFitnessTest:
		fitness, err := AggregateFitnessTest(ctx, current.Items, current.Results, s.Standards)
		if errors.Is(err, ErrNoAnalyzableVideo) {
			s.fail(ctx, sub, startedAt, ErrorCodeNoAnalyzableVideo, "no video could be analyzed")
			return
		}
		if err != nil {
			s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
			return
		}
		outcome.Fitness = &fitness
	case KindLevelVerification:
		user, err := s.Users.Get(ctx, sub.UserID)
		if err != nil {
			s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
			return
		}
		verification, err := AggregateLevelVerification(ctx, current.Items, current.Results, s.Standards, user.CurrentLevel)
		if errors.Is(err, ErrNoAnalyzableVideo) {
			s.fail(ctx, sub, startedAt, ErrorCodeNoAnalyzableVideo, "no video could be analyzed")
			return
		}
		if err != nil {
			s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
			return
		}
		outcome.Verification = &verification
	default:
		s.fail(ctx, sub, startedAt, ErrorCodeInternal, fmt.Sprintf("unknown kind %q", sub.Kind))
		return
	}

	final, err := s.Repo.Finalize(ctx, sub.ID, outcome)
	if err != nil {
		s.fail(ctx, sub, startedAt, ErrorCodeInternal, sanitizeError(err))
		return
	}
	if final.Status != StatusCompleted {
		// A concurrent fault path won the finalize race; keep its verdict.
		return
	}

	s.applyLevelChange(ctx, sub.UserID, outcome)

	completedAt := time.Now().UTC()
	metrics.IncSubmissionCompleted()
	metrics.ObserveSubmissionDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("submission.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           sub.UserID,
		"job_id":            sub.ID,
		"kind":              sub.Kind,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

// applyLevelChange stores the level decided by the aggregate outcome.
// Best-effort: the submission record is already final.
func (s *Service) applyLevelChange(ctx context.Context, userID string, outcome Outcome) {
	if s.Users == nil {
		return
	}
	var level int
	switch {
	case outcome.Fitness != nil:
		level = outcome.Fitness.AssignedLevel
	case outcome.Verification != nil && outcome.Verification.Passed:
		level = outcome.Verification.NewLevel
	default:
		return
	}
	if err := s.Users.SetLevel(ctx, userID, level); err != nil {
		telemetry.Error("user.level_update_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"user_id":    userID,
			"level":      level,
			"error":      sanitizeError(err),
		})
	}
}

func (s *Service) fail(ctx context.Context, sub Submission, startedAt time.Time, code, message string) {
	if _, err := s.Repo.FinalizeFailed(context.Background(), sub.ID, code, message); err != nil {
		telemetry.Error("submission.finalize_failed", map[string]any{
			"job_id": sub.ID,
			"code":   code,
			"error":  sanitizeError(err),
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncSubmissionFailed()
	metrics.ObserveSubmissionDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("submission.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           sub.UserID,
		"job_id":            sub.ID,
		"kind":              sub.Kind,
		"status":            StatusFailed,
		"error_code":        code,
		"status_transition": "processing->failed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
