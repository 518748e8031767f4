package users

import "time"

// Level bounds for the 7-step proficiency ladder.
const (
	MinLevel = 1
	MaxLevel = 7
)

// User is the training profile this service needs: identity plus the current
// proficiency level driving level-verification targets.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrentLevel int       `json:"currentLevel"`
	Tier         string    `json:"tier"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TierForLevel maps a numeric level onto its display tier.
func TierForLevel(level int) string {
	switch {
	case level <= 2:
		return "beginner"
	case level <= 5:
		return "intermediate"
	default:
		return "advanced"
	}
}
