package submissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"repstack-backend/internal/vision"
)

// scriptedClient returns one scripted response per call, in order. The last
// script repeats once exhausted.
type scriptedClient struct {
	mu      sync.Mutex
	outputs []vision.AnalyzeOutput
	errs    []error
	calls   int
}

func (c *scriptedClient) AnalyzeVideo(ctx context.Context, input vision.AnalyzeInput) (vision.AnalyzeOutput, error) {
	_ = ctx
	_ = input
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.errs) {
		i = len(c.errs) - 1
	}
	c.calls++
	return c.outputs[i], c.errs[i]
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testAnalyzer(client vision.Client) safeAnalyzer {
	a := newSafeAnalyzer(client, "job-1", "req-1")
	a.retryDelay = time.Millisecond
	return a
}

func TestAnalyzeNeverReturnsError(t *testing.T) {
	client := &scriptedClient{
		outputs: []vision.AnalyzeOutput{{}},
		errs:    []error{errors.New("boom")},
	}

	result := testAnalyzer(client).analyze(context.Background(), "pushup", "http://videos/v1")
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if result.ExerciseType != "pushup" {
		t.Fatalf("expected exercise type carried through, got %q", result.ExerciseType)
	}
	if result.Error == "" {
		t.Fatalf("expected an error message")
	}
}

func TestAnalyzeRetriesTransientOnce(t *testing.T) {
	client := &scriptedClient{
		outputs: []vision.AnalyzeOutput{{}, {RepCount: 12, QualityScore: 85}},
		errs:    []error{errors.New("vision http status 502"), nil},
	}

	result := testAnalyzer(client).analyze(context.Background(), "squat", "http://videos/v1")
	if !result.Success {
		t.Fatalf("expected success after retry, got error %q", result.Error)
	}
	if result.RepCount != 12 {
		t.Fatalf("expected rep count 12, got %d", result.RepCount)
	}
	if got := client.callCount(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestAnalyzeDoesNotRetryVerdict(t *testing.T) {
	client := &scriptedClient{
		outputs: []vision.AnalyzeOutput{{}},
		errs:    []error{&vision.AnalysisError{Reason: "영상에서 운동 동작을 찾을 수 없어요"}},
	}

	result := testAnalyzer(client).analyze(context.Background(), "pullup", "http://videos/v1")
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if result.Error != "영상에서 운동 동작을 찾을 수 없어요" {
		t.Fatalf("expected verdict reason surfaced, got %q", result.Error)
	}
	if got := client.callCount(); got != 1 {
		t.Fatalf("expected a single call for a terminal verdict, got %d", got)
	}
}

func TestAnalyzeRetriesAtMostOnce(t *testing.T) {
	client := &scriptedClient{
		outputs: []vision.AnalyzeOutput{{}},
		errs:    []error{errors.New("connection refused")},
	}

	result := testAnalyzer(client).analyze(context.Background(), "squat", "http://videos/v1")
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if got := client.callCount(); got != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", got)
	}
}

func TestShouldRetryAnalyze(t *testing.T) {
	cases := []struct {
		err   error
		retry bool
	}{
		{nil, false},
		{&vision.AnalysisError{Reason: "no motion"}, false},
		{context.DeadlineExceeded, true},
		{errors.New("vision http status 502: bad gateway"), true},
		{errors.New("vision http status 400: bad request"), false},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("client timeout exceeded"), true},
		{errors.New("quality score out of range"), false},
	}
	for _, tc := range cases {
		if got := shouldRetryAnalyze(tc.err); got != tc.retry {
			t.Fatalf("error %v: expected retry=%v, got %v", tc.err, tc.retry, got)
		}
	}
}

func TestSanitizeErrorFlattensAndCaps(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	err := errors.New("line one\nline two\r\n" + string(long))
	msg := sanitizeError(err)
	if len(msg) > 500 {
		t.Fatalf("expected message capped at 500 chars, got %d", len(msg))
	}
	for _, ch := range msg {
		if ch == '\n' || ch == '\r' {
			t.Fatalf("expected newlines stripped")
		}
	}
}
