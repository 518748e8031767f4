package submissions

import (
	"context"
	"errors"
	"fmt"
	"math"

	"repstack-backend/internal/standards"
	"repstack-backend/internal/users"
)

// ErrNoAnalyzableVideo is returned when not a single item of a submission
// produced a usable analysis. The batch is a hard failure.
var ErrNoAnalyzableVideo = errors.New("no analyzable video")

// Weighting of the per-item composite: rep count against the reference
// standard carries more than raw form quality.
const (
	countWeight   = 0.6
	qualityWeight = 0.4
)

// AggregateFitnessTest turns a submission's item results into a fitness score
// and level placement. It is a pure function of its inputs; partial per-item
// failures are tolerated as long as at least one item succeeded.
func AggregateFitnessTest(ctx context.Context, items []Item, results []ItemResult, ref standards.Repo) (FitnessOutcome, error) {
	var sum float64
	var succeeded int
	recommendations := []string{}

	for _, item := range items {
		result, ok := findResult(results, item.ExerciseType)
		if !ok || !result.Success {
			recommendations = append(recommendations, fmt.Sprintf("%s 재촬영 권장", item.ExerciseType))
			continue
		}

		std, err := ref.FitnessStandard(ctx, item.ExerciseType)
		if err != nil {
			return FitnessOutcome{}, fmt.Errorf("fitness standard %s: %w", item.ExerciseType, err)
		}

		countRatio := 100 * float64(result.RepCount) / float64(std.ExpectedCount)
		if countRatio > 100 {
			countRatio = 100
		}
		sum += countWeight*countRatio + qualityWeight*float64(result.QualityScore)
		succeeded++

		if result.QualityScore < std.ExpectedQuality {
			recommendations = append(recommendations, fmt.Sprintf("%s 자세 교정 권장", item.ExerciseType))
		}
	}

	if succeeded == 0 {
		return FitnessOutcome{}, ErrNoAnalyzableVideo
	}

	score := math.Round(sum/float64(succeeded)*10) / 10
	level := levelForScore(score)
	tier := users.TierForLevel(level)

	return FitnessOutcome{
		FitnessScore:    score,
		AssignedLevel:   level,
		AssignedTier:    tier,
		Message:         tierMessage(tier),
		Recommendations: recommendations,
	}, nil
}

// Score bands are monotonic and cover 0-100; the upper levels are
// deliberately narrow since they gate advanced programming.
func levelForScore(score float64) int {
	switch {
	case score < 40:
		return 1
	case score < 60:
		return 2
	case score < 80:
		return 3
	case score < 85:
		return 4
	case score < 90:
		return 5
	case score < 95:
		return 6
	default:
		return 7
	}
}

func tierMessage(tier string) string {
	switch tier {
	case "beginner":
		return "좋은 시작이에요! 기초 체력부터 차근차근 쌓아볼까요?"
	case "intermediate":
		return "탄탄한 기본기가 느껴져요. 다음 레벨에 도전해보세요!"
	case "advanced":
		return "훌륭한 실력이에요! 고급 프로그램으로 넘어갈 준비가 됐어요."
	default:
		return "꾸준히 함께 운동해봐요!"
	}
}

func findResult(results []ItemResult, exerciseType string) (ItemResult, bool) {
	for _, r := range results {
		if r.ExerciseType == exerciseType {
			return r, true
		}
	}
	return ItemResult{}, false
}
