package standards

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo reads reference tables from Postgres, falling back to the built-in
// defaults when a row is missing.
type PGRepo struct {
	DB       *sql.DB
	Fallback Defaults
}

// FitnessStandard returns the stored standard for an exercise type.
func (r *PGRepo) FitnessStandard(ctx context.Context, exerciseType string) (FitnessStandard, error) {
	const query = `
SELECT exercise_type, expected_count, expected_quality
FROM fitness_standards
WHERE exercise_type = $1`
	var std FitnessStandard
	err := r.DB.QueryRowContext(ctx, query, exerciseType).Scan(&std.ExerciseType, &std.ExpectedCount, &std.ExpectedQuality)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Fallback.FitnessStandard(ctx, exerciseType)
	}
	if err != nil {
		return FitnessStandard{}, err
	}
	return std, nil
}

// LevelTarget returns the stored target for an exercise type at a level.
func (r *PGRepo) LevelTarget(ctx context.Context, exerciseType string, level int) (LevelTarget, error) {
	const query = `
SELECT exercise_type, level, weight_kg, reps, min_quality
FROM level_targets
WHERE exercise_type = $1 AND level = $2`
	var target LevelTarget
	err := r.DB.QueryRowContext(ctx, query, exerciseType, level).Scan(
		&target.ExerciseType, &target.Level, &target.WeightKg, &target.Reps, &target.MinQuality,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Fallback.LevelTarget(ctx, exerciseType, level)
	}
	if err != nil {
		return LevelTarget{}, err
	}
	return target, nil
}
