package vision

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockResult scripts one exercise type's response for the mock client.
type MockResult struct {
	Output AnalyzeOutput
	Err    error
	Delay  time.Duration
}

// Mock is a scripted Client used in tests and local development.
type Mock struct {
	mu      sync.Mutex
	results map[string]MockResult
	calls   []AnalyzeInput
}

// NewMock constructs a Mock with the given per-exercise scripts.
func NewMock(results map[string]MockResult) *Mock {
	if results == nil {
		results = map[string]MockResult{}
	}
	return &Mock{results: results}
}

// AnalyzeVideo returns the scripted result for the input's exercise type.
func (m *Mock) AnalyzeVideo(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	res, ok := m.results[input.ExerciseType]
	m.mu.Unlock()

	if !ok {
		return AnalyzeOutput{}, fmt.Errorf("mock: no script for exercise %q", input.ExerciseType)
	}
	if res.Delay > 0 {
		select {
		case <-time.After(res.Delay):
		case <-ctx.Done():
			return AnalyzeOutput{}, ctx.Err()
		}
	}
	if res.Err != nil {
		return AnalyzeOutput{}, res.Err
	}
	return res.Output, nil
}

// Calls returns a copy of the inputs seen so far.
func (m *Mock) Calls() []AnalyzeInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnalyzeInput, len(m.calls))
	copy(out, m.calls)
	return out
}
