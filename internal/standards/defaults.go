package standards

import "context"

// Defaults serves the built-in reference tables. It backs the memory
// deployment and is the fallback when a database row is missing.
type Defaults struct{}

// NewDefaults constructs the built-in reference data source.
func NewDefaults() Defaults {
	return Defaults{}
}

// Bodyweight rep counts an advanced (level 7) trainee is expected to hit in
// one set. The fitness composite normalizes rep counts against these.
var defaultFitnessStandards = map[string]FitnessStandard{
	"pushup": {ExerciseType: "pushup", ExpectedCount: 32, ExpectedQuality: 70},
	"squat":  {ExerciseType: "squat", ExpectedCount: 40, ExpectedQuality: 70},
	"pullup": {ExerciseType: "pullup", ExpectedCount: 8, ExpectedQuality: 70},
	"situp":  {ExerciseType: "situp", ExpectedCount: 45, ExpectedQuality: 70},
	"burpee": {ExerciseType: "burpee", ExpectedCount: 20, ExpectedQuality: 70},
	"lunge":  {ExerciseType: "lunge", ExpectedCount: 40, ExpectedQuality: 70},
}

// Base weight at level 1 and per-level increment for the barbell lifts used in
// level-verification tests. All targets are 5-rep sets with a 60 form floor.
var defaultLevelTargets = map[string]struct {
	base float64
	step float64
}{
	"bench_press":    {base: 40, step: 15},
	"squat":          {base: 50, step: 20},
	"deadlift":       {base: 60, step: 25},
	"overhead_press": {base: 25, step: 10},
}

const (
	defaultTargetReps      = 5
	defaultTargetQualities = 60
)

// FitnessStandard returns the built-in standard for an exercise type.
func (Defaults) FitnessStandard(ctx context.Context, exerciseType string) (FitnessStandard, error) {
	if err := ctx.Err(); err != nil {
		return FitnessStandard{}, err
	}
	std, ok := defaultFitnessStandards[exerciseType]
	if !ok {
		return FitnessStandard{}, ErrUnknownExercise
	}
	return std, nil
}

// LevelTarget returns the built-in target for an exercise type at a level.
func (Defaults) LevelTarget(ctx context.Context, exerciseType string, level int) (LevelTarget, error) {
	if err := ctx.Err(); err != nil {
		return LevelTarget{}, err
	}
	prog, ok := defaultLevelTargets[exerciseType]
	if !ok {
		return LevelTarget{}, ErrUnknownExercise
	}
	if level < 1 {
		level = 1
	}
	return LevelTarget{
		ExerciseType: exerciseType,
		Level:        level,
		WeightKg:     prog.base + prog.step*float64(level-1),
		Reps:         defaultTargetReps,
		MinQuality:   defaultTargetQualities,
	}, nil
}
