package users

import (
	"context"
	"testing"
)

func TestServiceGetCreatesDefaultProfile(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	user, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.CurrentLevel != MinLevel {
		t.Fatalf("expected level %d for a new user, got %d", MinLevel, user.CurrentLevel)
	}
	if user.Tier != "beginner" {
		t.Fatalf("expected tier beginner, got %q", user.Tier)
	}
}

func TestServiceSetLevelClamps(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	if err := svc.SetLevel(context.Background(), "user-1", 99); err != nil {
		t.Fatalf("set level: %v", err)
	}
	user, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.CurrentLevel != MaxLevel {
		t.Fatalf("expected level clamped to %d, got %d", MaxLevel, user.CurrentLevel)
	}
	if user.Tier != "advanced" {
		t.Fatalf("expected tier advanced, got %q", user.Tier)
	}

	if err := svc.SetLevel(context.Background(), "user-1", -3); err != nil {
		t.Fatalf("set level: %v", err)
	}
	user, err = svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.CurrentLevel != MinLevel {
		t.Fatalf("expected level clamped to %d, got %d", MinLevel, user.CurrentLevel)
	}
}

func TestServicePromoteCapsAtMax(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	if err := svc.SetLevel(context.Background(), "user-1", MaxLevel); err != nil {
		t.Fatalf("set level: %v", err)
	}
	level, err := svc.Promote(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if level != MaxLevel {
		t.Fatalf("expected level to stay at %d, got %d", MaxLevel, level)
	}
}

func TestTierForLevel(t *testing.T) {
	cases := []struct {
		level int
		tier  string
	}{
		{1, "beginner"},
		{2, "beginner"},
		{3, "intermediate"},
		{5, "intermediate"},
		{6, "advanced"},
		{7, "advanced"},
	}
	for _, tc := range cases {
		if got := TierForLevel(tc.level); got != tc.tier {
			t.Fatalf("level %d: expected %q, got %q", tc.level, tc.tier, got)
		}
	}
}
