package users

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user exists for an ID.
var ErrNotFound = errors.New("user not found")

// Repo defines persistence operations for user profiles.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	Upsert(ctx context.Context, user User) error
	SetLevel(ctx context.Context, userID string, level int) error
}
