package standards

import (
	"context"
	"errors"
)

// ErrUnknownExercise is returned when no standard exists for an exercise type.
var ErrUnknownExercise = errors.New("unknown exercise type")

// FitnessStandard is the reference used to normalize a fitness-test item.
type FitnessStandard struct {
	ExerciseType    string
	ExpectedCount   int
	ExpectedQuality int
}

// LevelTarget is the weight/reps bar an exercise must clear to pass a
// level-verification test at the given level.
type LevelTarget struct {
	ExerciseType string
	Level        int
	WeightKg     float64
	Reps         int
	MinQuality   int
}

// Repo provides reference data for the aggregators.
type Repo interface {
	FitnessStandard(ctx context.Context, exerciseType string) (FitnessStandard, error)
	LevelTarget(ctx context.Context, exerciseType string, level int) (LevelTarget, error)
}
