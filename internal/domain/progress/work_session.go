package progress

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScopeProblem = "problem"
	// ScopeSite rows belong to site-wide presence tracking and are never read or written here.
	ScopeSite = "site"
)

// WorkSession is one interval of effort by one user on one problem.
// A nil EndedAt means the interval is still open; at most one open interval
// exists per (user, problem, scope), enforced by a partial unique index.
type WorkSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_work_sessions_pair,priority:1;uniqueIndex:idx_work_sessions_open,where:ended_at IS NULL" json:"user_id"`
	ProblemID uuid.UUID `gorm:"type:uuid;not null;index:idx_work_sessions_pair,priority:2;uniqueIndex:idx_work_sessions_open,where:ended_at IS NULL" json:"problem_id"`
	Scope     string    `gorm:"column:scope;type:text;not null;index:idx_work_sessions_pair,priority:3;uniqueIndex:idx_work_sessions_open,where:ended_at IS NULL" json:"scope"`

	StartedAt       time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	EndedAt         *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	DurationMinutes float64    `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (WorkSession) TableName() string { return "work_sessions" }

func (s *WorkSession) Open() bool { return s != nil && s.EndedAt == nil }

// MinutesBetween is the non-negative length of [start, end] in fractional minutes.
func MinutesBetween(start, end time.Time) float64 {
	m := end.Sub(start).Minutes()
	if m < 0 {
		return 0
	}
	return m
}
