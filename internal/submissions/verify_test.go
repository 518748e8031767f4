package submissions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"repstack-backend/internal/standards"
)

func TestAggregateLevelVerificationPass(t *testing.T) {
	items := []Item{
		{ExerciseType: "bench_press", VideoKey: "v1"},
		{ExerciseType: "squat", VideoKey: "v2"},
	}
	// Level 2 targets: bench 55kg x5, squat 70kg x5.
	results := []ItemResult{
		{ExerciseType: "bench_press", Success: true, RepCount: 5, WeightKg: 55, QualityScore: 80},
		{ExerciseType: "squat", Success: true, RepCount: 5, WeightKg: 70, QualityScore: 75},
	}

	outcome, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 2)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !outcome.Passed {
		t.Fatalf("expected pass, got feedback %q", outcome.Feedback)
	}
	if outcome.NewLevel != 3 {
		t.Fatalf("expected new level 3, got %d", outcome.NewLevel)
	}
}

func TestAggregateLevelVerificationWeightShortfall(t *testing.T) {
	items := []Item{{ExerciseType: "deadlift", VideoKey: "v1"}}
	// Level 2 deadlift target is 85kg x5; 80kg x5 falls 5kg short.
	results := []ItemResult{
		{ExerciseType: "deadlift", Success: true, RepCount: 5, WeightKg: 80, QualityScore: 90},
	}

	outcome, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 2)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if outcome.Passed {
		t.Fatalf("expected failure on weight shortfall")
	}
	if outcome.NewLevel != 2 {
		t.Fatalf("expected level to stay at 2, got %d", outcome.NewLevel)
	}
	if !strings.Contains(outcome.Feedback, "무게 부족: 5kg 더 필요") {
		t.Fatalf("expected 5kg shortfall feedback, got %q", outcome.Feedback)
	}
	if len(outcome.NextSteps) != 1 {
		t.Fatalf("expected one next step, got %v", outcome.NextSteps)
	}
}

func TestAggregateLevelVerificationQualityFloor(t *testing.T) {
	items := []Item{{ExerciseType: "overhead_press", VideoKey: "v1"}}
	// Enough volume but form below the 60 floor.
	results := []ItemResult{
		{ExerciseType: "overhead_press", Success: true, RepCount: 5, WeightKg: 50, QualityScore: 55},
	}

	outcome, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 2)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if outcome.Passed {
		t.Fatalf("expected failure on quality floor")
	}
	if !strings.Contains(outcome.Feedback, "자세 점수 부족") {
		t.Fatalf("expected quality feedback, got %q", outcome.Feedback)
	}
}

func TestAggregateLevelVerificationAnalysisFailureBlocksPass(t *testing.T) {
	items := []Item{
		{ExerciseType: "bench_press", VideoKey: "v1"},
		{ExerciseType: "squat", VideoKey: "v2"},
	}
	results := []ItemResult{
		{ExerciseType: "bench_press", Success: true, RepCount: 5, WeightKg: 200, QualityScore: 95},
		{ExerciseType: "squat", Success: false, Error: "corrupt video"},
	}

	outcome, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 2)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if outcome.Passed {
		t.Fatalf("a failed item must block the pass")
	}
	if !strings.Contains(outcome.Feedback, "분석 실패") {
		t.Fatalf("expected analysis failure feedback, got %q", outcome.Feedback)
	}
}

func TestAggregateLevelVerificationAllFailed(t *testing.T) {
	items := []Item{{ExerciseType: "squat", VideoKey: "v1"}}
	results := []ItemResult{{ExerciseType: "squat", Success: false, Error: "corrupt video"}}

	_, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 2)
	if !errors.Is(err, ErrNoAnalyzableVideo) {
		t.Fatalf("expected ErrNoAnalyzableVideo, got %v", err)
	}
}

func TestAggregateLevelVerificationCapsAtMaxLevel(t *testing.T) {
	items := []Item{{ExerciseType: "squat", VideoKey: "v1"}}
	// Level 7 squat target is 170kg x5.
	results := []ItemResult{
		{ExerciseType: "squat", Success: true, RepCount: 5, WeightKg: 170, QualityScore: 90},
	}

	outcome, err := AggregateLevelVerification(context.Background(), items, results, standards.NewDefaults(), 7)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !outcome.Passed {
		t.Fatalf("expected pass, got feedback %q", outcome.Feedback)
	}
	if outcome.NewLevel != 7 {
		t.Fatalf("expected level capped at 7, got %d", outcome.NewLevel)
	}
}
