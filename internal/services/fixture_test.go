package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/data/aggregates"
	"github.com/mentiby/tracker-backend/internal/data/repos"
	catalogueRepos "github.com/mentiby/tracker-backend/internal/data/repos/catalogue"
	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
)

var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type publisherSpy struct {
	mu     sync.Mutex
	events []catalogue.DeletedEvent
	err    error
	onPub  func(ev catalogue.DeletedEvent)
}

func (p *publisherSpy) Publish(_ context.Context, ev catalogue.DeletedEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	if p.onPub != nil {
		p.onPub(ev)
	}
	return p.err
}

type svcFixture struct {
	db        *gorm.DB
	clock     *clock
	repos     repoSet
	progress  ProgressService
	score     ScoreService
	catalogue CatalogueService
	bus       *publisherSpy
}

type repoSet struct {
	problems repos.ProblemRepo
	runs     repos.ReconcileRunRepo
}

func newSvcFixture(t *testing.T) svcFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	clk := &clock{now: t0}

	problems := repos.NewProblemRepo(db, log)
	sessions := repos.NewWorkSessionRepo(db, log)
	completions := repos.NewCompletionRepo(db, log)
	scores := repos.NewUserScoreRepo(db, log)
	ledger := repos.NewLedgerRepo(db, log)
	runs := repos.NewReconcileRunRepo(db, log)
	reader := catalogueRepos.NewReader(problems)
	policy := timelock.Fallback()
	base := aggregates.BaseDeps{DB: db, Log: log}

	progressAgg := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base: base, Problems: problems, Sessions: sessions, Completions: completions,
		Scores: scores, Ledger: ledger, Policy: policy,
	})
	scoreAgg := aggregates.NewScoreAggregate(aggregates.ScoreAggregateDeps{
		Base: base, Problems: problems, Scores: scores, Ledger: ledger,
	})

	scoreSvc := NewScoreService(log, ScoreServiceDeps{
		Aggregate: scoreAgg,
		Catalogue: reader,
		Scores:    scores,
		Ledger:    ledger,
		Runs:      runs,
		Sweep:     SweepConfig{Concurrency: 3, BatchSize: 2, Timeout: time.Minute},
		Now:       clk.Now,
	})
	bus := &publisherSpy{}
	bus.onPub = func(ev catalogue.DeletedEvent) { _ = scoreSvc.OnProblemDeleted(context.Background(), ev) }

	return svcFixture{
		db:    db,
		clock: clk,
		repos: repoSet{problems: problems, runs: runs},
		progress: NewProgressService(log, ProgressServiceDeps{
			Aggregate:   progressAgg,
			Catalogue:   reader,
			Sessions:    sessions,
			Completions: completions,
			Policy:      policy,
			Now:         clk.Now,
		}),
		score:     scoreSvc,
		catalogue: NewCatalogueService(log, problems, bus),
		bus:       bus,
	}
}
