package users

import (
	"context"
	"errors"
)

// Service contains business logic for user profiles.
type Service struct {
	Repo Repo
}

// Get returns a user's profile, creating a level-1 default on first access.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, errors.New("userID is required")
	}
	user, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		user = User{
			ID:           userID,
			CurrentLevel: MinLevel,
			Tier:         TierForLevel(MinLevel),
		}
		if err := s.Repo.Upsert(ctx, user); err != nil {
			return User{}, err
		}
		return s.Repo.GetByID(ctx, userID)
	}
	return user, err
}

// SetLevel stores a level assignment, clamped to the valid range.
func (s *Service) SetLevel(ctx context.Context, userID string, level int) error {
	if userID == "" {
		return errors.New("userID is required")
	}
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	// First-time users may not have a row yet.
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	return s.Repo.SetLevel(ctx, userID, level)
}

// Promote raises the user one level, capped at MaxLevel.
func (s *Service) Promote(ctx context.Context, userID string) (int, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	next := user.CurrentLevel + 1
	if next > MaxLevel {
		next = MaxLevel
	}
	if next == user.CurrentLevel {
		return user.CurrentLevel, nil
	}
	if err := s.Repo.SetLevel(ctx, userID, next); err != nil {
		return 0, err
	}
	return next, nil
}
