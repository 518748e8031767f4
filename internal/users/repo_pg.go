package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, name, current_level, tier, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`
	var u User
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Name, &u.CurrentLevel, &u.Tier, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Upsert stores or replaces a user.
func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, name, current_level, tier, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    current_level = EXCLUDED.current_level,
    tier = EXCLUDED.tier,
    updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx, query, user.ID, user.Name, user.CurrentLevel, user.Tier, now)
	return err
}

// SetLevel updates the user's current level and derived tier.
func (r *PGRepo) SetLevel(ctx context.Context, userID string, level int) error {
	const query = `
UPDATE users
SET current_level = $2, tier = $3, updated_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, userID, level, TierForLevel(level), time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
