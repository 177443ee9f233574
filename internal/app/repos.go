package app

import (
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	catalogueRepos "github.com/mentiby/tracker-backend/internal/data/repos/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type Repos struct {
	Problems    repos.ProblemRepo
	Catalogue   catalogue.Reader
	Sessions    repos.WorkSessionRepo
	Completions repos.CompletionRepo
	Scores      repos.UserScoreRepo
	Ledger      repos.LedgerRepo
	Runs        repos.ReconcileRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	problems := repos.NewProblemRepo(db, log)
	return Repos{
		Problems:    problems,
		Catalogue:   catalogueRepos.NewReader(problems),
		Sessions:    repos.NewWorkSessionRepo(db, log),
		Completions: repos.NewCompletionRepo(db, log),
		Scores:      repos.NewUserScoreRepo(db, log),
		Ledger:      repos.NewLedgerRepo(db, log),
		Runs:        repos.NewReconcileRunRepo(db, log),
	}
}
