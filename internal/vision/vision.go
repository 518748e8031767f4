package vision

import (
	"context"
	"fmt"
)

// Client abstracts the external vision AI service that scores one exercise
// video.
type Client interface {
	AnalyzeVideo(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error)
}

// AnalyzeInput captures the inputs for a single video analysis call.
type AnalyzeInput struct {
	ExerciseType string
	VideoURL     string
}

// AnalyzeOutput is the per-video verdict returned by the vision service.
type AnalyzeOutput struct {
	RepCount     int
	WeightKg     float64
	QualityScore int
	Issues       []string
	Feedback     string
}

// AnalysisError is a well-formed negative verdict from the vision service
// (e.g. no repetitions detectable in the footage). It is terminal for the
// item and must not be retried.
type AnalysisError struct {
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}
