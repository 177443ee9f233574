package catalogue

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty is the catalogue's difficulty tier. It drives both the time-lock
// threshold and, by curator convention, the point value.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty normalises case and whitespace. Unknown values are returned
// as-is so the time-lock policy can apply its explicit fallback.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return Difficulty(strings.TrimSpace(s))
	}
}

func (d Difficulty) Known() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ErrProblemNotFound is returned whenever a referenced problem no longer exists.
var ErrProblemNotFound = errors.New("problem not found")

// Problem is the catalogue row. This engine only reads it; the admin surface owns writes.
type Problem struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	Difficulty Difficulty `gorm:"column:difficulty;type:text;not null;index" json:"difficulty"`
	Category   string     `gorm:"column:category;not null;default:'General'" json:"category"`
	Points     int        `gorm:"column:points;not null" json:"points"`
	Link       string     `gorm:"column:problem_link" json:"problem_link"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Problem) TableName() string { return "problems" }

// DeletedEvent is published after a problem row is removed. PointValue is captured
// before deletion because the row can no longer be read afterwards.
type DeletedEvent struct {
	ProblemID  uuid.UUID `json:"problem_id"`
	PointValue int       `json:"point_value"`
	DeletedAt  time.Time `json:"deleted_at"`
}
