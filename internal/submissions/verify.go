package submissions

import (
	"context"
	"fmt"
	"math"
	"strings"

	"repstack-backend/internal/standards"
	"repstack-backend/internal/users"
)

// AggregateLevelVerification checks a submission's item results against the
// weight/reps targets for the user's current level. The batch passes only if
// every item passes; there is no partial credit on a gating test.
func AggregateLevelVerification(ctx context.Context, items []Item, results []ItemResult, ref standards.Repo, currentLevel int) (VerificationOutcome, error) {
	var succeeded int
	var failures []string
	nextSteps := []string{}

	for _, item := range items {
		result, ok := findResult(results, item.ExerciseType)
		if !ok || !result.Success {
			failures = append(failures, fmt.Sprintf("%s: 분석 실패", item.ExerciseType))
			nextSteps = append(nextSteps, fmt.Sprintf("%s 영상 재촬영 후 재도전", item.ExerciseType))
			continue
		}
		succeeded++

		target, err := ref.LevelTarget(ctx, item.ExerciseType, currentLevel)
		if err != nil {
			return VerificationOutcome{}, fmt.Errorf("level target %s@%d: %w", item.ExerciseType, currentLevel, err)
		}

		if reason, step, passed := checkTarget(result, target); !passed {
			failures = append(failures, fmt.Sprintf("%s: %s", item.ExerciseType, reason))
			nextSteps = append(nextSteps, step)
		}
	}

	if succeeded == 0 {
		return VerificationOutcome{}, ErrNoAnalyzableVideo
	}

	if len(failures) > 0 {
		return VerificationOutcome{
			Passed:    false,
			NewLevel:  currentLevel,
			Feedback:  strings.Join(failures, "; "),
			NextSteps: nextSteps,
		}, nil
	}

	newLevel := currentLevel + 1
	if newLevel > users.MaxLevel {
		newLevel = users.MaxLevel
	}
	return VerificationOutcome{
		Passed:    true,
		NewLevel:  newLevel,
		Feedback:  fmt.Sprintf("모든 종목 통과! 레벨 %d 달성을 축하해요.", newLevel),
		NextSteps: nextSteps,
	}, nil
}

// checkTarget applies the pass rule for one item: lifted volume must meet the
// target volume and form must clear the quality floor.
func checkTarget(result ItemResult, target standards.LevelTarget) (reason, nextStep string, passed bool) {
	requiredVolume := target.WeightKg * float64(target.Reps)
	achievedVolume := result.WeightKg * float64(result.RepCount)

	if achievedVolume < requiredVolume {
		reps := result.RepCount
		if reps < 1 {
			reps = 1
		}
		shortfall := math.Ceil(requiredVolume/float64(reps) - result.WeightKg)
		reason = fmt.Sprintf("무게 부족: %.0fkg 더 필요", shortfall)
		nextStep = fmt.Sprintf("%s %.0fkg x %d회 달성 후 재도전", result.ExerciseType, target.WeightKg, target.Reps)
		return reason, nextStep, false
	}

	if result.QualityScore < target.MinQuality {
		reason = fmt.Sprintf("자세 점수 부족: 최소 %d점 필요", target.MinQuality)
		nextStep = fmt.Sprintf("%s 자세 교정 후 재도전", result.ExerciseType)
		return reason, nextStep, false
	}

	return "", "", true
}
