package vision

import (
	"context"
	"errors"
)

// Placeholder stands in when no vision provider is configured. Every call
// fails, which surfaces as a per-item analysis failure rather than a crash.
type Placeholder struct{}

func (Placeholder) AnalyzeVideo(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	_ = ctx
	_ = input
	return AnalyzeOutput{}, errors.New("vision client not configured")
}
