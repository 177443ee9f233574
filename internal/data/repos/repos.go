package repos

import (
	"github.com/mentiby/tracker-backend/internal/data/repos/catalogue"
	"github.com/mentiby/tracker-backend/internal/data/repos/progress"
	"github.com/mentiby/tracker-backend/internal/data/repos/score"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ProblemRepo = catalogue.ProblemRepo

type WorkSessionRepo = progress.WorkSessionRepo
type CompletionRepo = progress.CompletionRepo

type UserScoreRepo = score.UserScoreRepo
type LedgerRepo = score.LedgerRepo
type ReconcileRunRepo = score.ReconcileRunRepo
type RunFinish = score.RunFinish

func NewProblemRepo(db *gorm.DB, baseLog *logger.Logger) ProblemRepo {
	return catalogue.NewProblemRepo(db, baseLog)
}

func NewWorkSessionRepo(db *gorm.DB, baseLog *logger.Logger) WorkSessionRepo {
	return progress.NewWorkSessionRepo(db, baseLog)
}
func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return progress.NewCompletionRepo(db, baseLog)
}

func NewUserScoreRepo(db *gorm.DB, baseLog *logger.Logger) UserScoreRepo {
	return score.NewUserScoreRepo(db, baseLog)
}
func NewLedgerRepo(db *gorm.DB, baseLog *logger.Logger) LedgerRepo {
	return score.NewLedgerRepo(db, baseLog)
}
func NewReconcileRunRepo(db *gorm.DB, baseLog *logger.Logger) ReconcileRunRepo {
	return score.NewReconcileRunRepo(db, baseLog)
}
