package submissions

import "time"

// Kind selects the aggregation policy for a submission.
const (
	KindFitnessTest       = "fitness_test"
	KindLevelVerification = "level_verification"
)

// Submission status state machine: pending -> processing -> completed|failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MaxItems bounds the number of videos in one submission.
const MaxItems = 10

// Item is one exercise video within a submission, fixed at creation.
type Item struct {
	ExerciseType string `json:"exerciseType"`
	VideoKey     string `json:"videoKey"`
}

// ItemResult is the per-video analysis outcome. Success carries metrics;
// failure carries a stable error string.
type ItemResult struct {
	ExerciseType string   `json:"exerciseType"`
	Success      bool     `json:"success"`
	RepCount     int      `json:"repCount,omitempty"`
	WeightKg     float64  `json:"weightKg,omitempty"`
	QualityScore int      `json:"qualityScore,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// FitnessOutcome is the aggregate result of a fitness-test submission.
type FitnessOutcome struct {
	FitnessScore    float64  `json:"fitnessScore"`
	AssignedLevel   int      `json:"assignedLevel"`
	AssignedTier    string   `json:"assignedTier"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
}

// VerificationOutcome is the aggregate result of a level-verification
// submission.
type VerificationOutcome struct {
	Passed    bool     `json:"passed"`
	NewLevel  int      `json:"newLevel"`
	Feedback  string   `json:"feedback"`
	NextSteps []string `json:"nextSteps"`
}

// Outcome wraps one of the kind-specific aggregate results.
type Outcome struct {
	Fitness      *FitnessOutcome      `json:"fitness,omitempty"`
	Verification *VerificationOutcome `json:"verification,omitempty"`
}

// Submission is one batch request to analyze a fixed set of exercise videos.
type Submission struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	Kind         string       `json:"kind"`
	Status       string       `json:"status"`
	Items        []Item       `json:"items"`
	Results      []ItemResult `json:"results"`
	Outcome      *Outcome     `json:"outcome,omitempty"`
	ErrorCode    string       `json:"errorCode,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Terminal reports whether the submission reached a final status.
func (s Submission) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Result returns the recorded result for an exercise type, if any.
func (s Submission) Result(exerciseType string) (ItemResult, bool) {
	for _, r := range s.Results {
		if r.ExerciseType == exerciseType {
			return r, true
		}
	}
	return ItemResult{}, false
}
