package app

import (
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/data/aggregates"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
	"github.com/mentiby/tracker-backend/internal/observability"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
	"github.com/mentiby/tracker-backend/internal/services"
)

type Services struct {
	Progress  services.ProgressService
	Score     services.ScoreService
	Catalogue services.CatalogueService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	policy := timelock.Default(log)
	base := aggregates.BaseDeps{
		DB:      db,
		Log:     log,
		Hooks:   aggregates.NewObservabilityHooks(metrics),
		Timeout: cfg.StoreTimeout,
	}

	progressAgg := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base:        base,
		Problems:    r.Problems,
		Sessions:    r.Sessions,
		Completions: r.Completions,
		Scores:      r.Scores,
		Ledger:      r.Ledger,
		Policy:      policy,
	})
	scoreAgg := aggregates.NewScoreAggregate(aggregates.ScoreAggregateDeps{
		Base:     base,
		Problems: r.Problems,
		Scores:   r.Scores,
		Ledger:   r.Ledger,
	})

	return Services{
		Progress: services.NewProgressService(log, services.ProgressServiceDeps{
			Aggregate:   progressAgg,
			Catalogue:   r.Catalogue,
			Sessions:    r.Sessions,
			Completions: r.Completions,
			Policy:      policy,
		}),
		Score: services.NewScoreService(log, services.ScoreServiceDeps{
			Aggregate: scoreAgg,
			Catalogue: r.Catalogue,
			Scores:    r.Scores,
			Ledger:    r.Ledger,
			Runs:      r.Runs,
			Metrics:   metrics,
			Sweep:     cfg.Sweep,
		}),
		Catalogue: services.NewCatalogueService(log, r.Problems, c.ProblemBus),
	}
}
