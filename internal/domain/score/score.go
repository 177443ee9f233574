package score

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrAlreadySolved = errors.New("problem already solved")
	ErrNotSolved     = errors.New("problem not solved yet")
	// ErrStaleScore means the score row moved underneath a compare-and-set; the write was discarded.
	ErrStaleScore = errors.New("score changed concurrently")
)

// UserScore is the root of a user's score aggregate. Version guards every write
// so reconciliation never overwrites a concurrent solve/unsolve.
type UserScore struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	TotalScore int       `gorm:"column:total_score;not null;default:0;index" json:"total_score"`
	Version    int       `gorm:"column:version;not null;default:0" json:"version"`

	ReconciledAt *time.Time `gorm:"column:reconciled_at" json:"reconciled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (UserScore) TableName() string { return "user_scores" }

// LedgerEntry records that a user solved a problem. Entries whose problem has
// left the catalogue are orphans and must not contribute to TotalScore.
type LedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_score_ledger_pair,priority:1" json:"user_id"`
	ProblemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_score_ledger_pair,priority:2;index" json:"problem_id"`
	SolvedAt  time.Time `gorm:"column:solved_at;not null" json:"solved_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "score_ledger_entries" }

// ReconcileRun records one batch sweep. Summary holds the per-run counters as JSON.
type ReconcileRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger       string         `gorm:"column:trigger_source;type:text;not null" json:"trigger"`
	Status        string         `gorm:"column:status;type:text;not null;index" json:"status"`
	UsersScanned  int            `gorm:"column:users_scanned;not null;default:0" json:"users_scanned"`
	UsersChanged  int            `gorm:"column:users_changed;not null;default:0" json:"users_changed"`
	EntriesPurged int            `gorm:"column:entries_purged;not null;default:0" json:"entries_purged"`
	Summary       datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`
	StartedAt     time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt    *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (ReconcileRun) TableName() string { return "reconcile_runs" }

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)
