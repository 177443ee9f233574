package progress

import (
	"time"

	"github.com/google/uuid"
)

// Completion is the single authoritative "this problem is done" record for a pair.
type Completion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completions_pair,priority:1" json:"user_id"`
	ProblemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completions_pair,priority:2;index" json:"problem_id"`

	StartedAt         time.Time `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt       time.Time `gorm:"column:completed_at;not null;index" json:"completed_at"`
	ActualMinutes     int       `gorm:"column:actual_minutes;not null" json:"actual_minutes"`
	WithinRecommended bool      `gorm:"column:within_recommended;not null" json:"within_recommended"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Completion) TableName() string { return "completions" }
