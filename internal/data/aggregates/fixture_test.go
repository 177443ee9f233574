package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
)

type aggFixture struct {
	db       *gorm.DB
	progress domainagg.ProgressAggregate
	score    domainagg.ScoreAggregate
}

func newAggFixture(t *testing.T) aggFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	base := BaseDeps{DB: db, Log: log}

	problems := repos.NewProblemRepo(db, log)
	scores := repos.NewUserScoreRepo(db, log)
	ledger := repos.NewLedgerRepo(db, log)

	return aggFixture{
		db: db,
		progress: NewProgressAggregate(ProgressAggregateDeps{
			Base:        base,
			Problems:    problems,
			Sessions:    repos.NewWorkSessionRepo(db, log),
			Completions: repos.NewCompletionRepo(db, log),
			Scores:      scores,
			Ledger:      ledger,
			Policy:      timelock.Fallback(),
		}),
		score: NewScoreAggregate(ScoreAggregateDeps{
			Base:     base,
			Problems: problems,
			Scores:   scores,
			Ledger:   ledger,
		}),
	}
}

func (f aggFixture) sessionCount(t *testing.T, userID, problemID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.WithContext(context.Background()).Model(&progress.WorkSession{}).
		Where("user_id = ? AND problem_id = ?", userID, problemID).Count(&n).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return n
}

func (f aggFixture) completionCount(t *testing.T, userID, problemID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.WithContext(context.Background()).Model(&progress.Completion{}).
		Where("user_id = ? AND problem_id = ?", userID, problemID).Count(&n).Error; err != nil {
		t.Fatalf("count completions: %v", err)
	}
	return n
}

func (f aggFixture) userScore(t *testing.T, userID uuid.UUID) score.UserScore {
	t.Helper()
	var row score.UserScore
	if err := f.db.WithContext(context.Background()).Where("user_id = ?", userID).First(&row).Error; err != nil {
		t.Fatalf("load user score: %v", err)
	}
	return row
}

func (f aggFixture) ledgerCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.WithContext(context.Background()).Model(&score.LedgerEntry{}).
		Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	return n
}
