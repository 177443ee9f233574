package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/observability"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type LedgerItem struct {
	ProblemID uuid.UUID          `json:"problem_id"`
	SolvedAt  time.Time          `json:"solved_at"`
	Problem   *catalogue.Problem `json:"problem"`
}

// UserProgress is the ledger view returned after the read-time reconcile.
type UserProgress struct {
	UserID             uuid.UUID     `json:"user_id"`
	TotalScore         int           `json:"total_score"`
	SolvedCount        int           `json:"solved_count"`
	TotalProblems      int64         `json:"total_problems"`
	ProgressPercentage float64       `json:"progress_percentage"`
	Entries            []*LedgerItem `json:"entries"`
	Reconciled         bool          `json:"reconciled"`
}

type DifficultyStats struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
	Other  int `json:"other"`
	Total  int `json:"total"`
}

type ScoreService interface {
	MarkSolved(ctx context.Context, userID, problemID uuid.UUID) (domainagg.ScoreChangeResult, error)
	MarkUnsolved(ctx context.Context, userID, problemID uuid.UUID) (domainagg.ScoreChangeResult, error)

	GetUserProgress(ctx context.Context, userID uuid.UUID) (*UserProgress, error)
	Stats(ctx context.Context, userID uuid.UUID) (*DifficultyStats, error)

	ReconcileUser(ctx context.Context, userID uuid.UUID, dryRun bool) (domainagg.ReconcileUserResult, error)
	ReconcileAll(ctx context.Context, opts SweepOptions) (*SweepReport, error)
	RecentSweeps(ctx context.Context, limit int) ([]*score.ReconcileRun, error)

	// OnProblemDeleted is the catalogue deletion subscriber.
	OnProblemDeleted(ctx context.Context, ev catalogue.DeletedEvent) error
}

type ScoreServiceDeps struct {
	Aggregate domainagg.ScoreAggregate
	Catalogue catalogue.Reader
	Scores    repos.UserScoreRepo
	Ledger    repos.LedgerRepo
	Runs      repos.ReconcileRunRepo
	Metrics   *observability.Metrics
	Sweep     SweepConfig
	Now       func() time.Time
}

type scoreService struct {
	log  *logger.Logger
	deps ScoreServiceDeps
}

func NewScoreService(log *logger.Logger, deps ScoreServiceDeps) ScoreService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Sweep = deps.Sweep.withDefaults()
	return &scoreService{log: log.With("service", "ScoreService"), deps: deps}
}

func (s *scoreService) now() time.Time { return s.deps.Now().UTC() }

func (s *scoreService) MarkSolved(ctx context.Context, userID, problemID uuid.UUID) (domainagg.ScoreChangeResult, error) {
	return s.deps.Aggregate.MarkSolved(ctx, domainagg.MarkSolvedInput{UserID: userID, ProblemID: problemID, SolvedAt: s.now()})
}

func (s *scoreService) MarkUnsolved(ctx context.Context, userID, problemID uuid.UUID) (domainagg.ScoreChangeResult, error) {
	return s.deps.Aggregate.MarkUnsolved(ctx, domainagg.MarkUnsolvedInput{UserID: userID, ProblemID: problemID})
}

func (s *scoreService) ReconcileUser(ctx context.Context, userID uuid.UUID, dryRun bool) (domainagg.ReconcileUserResult, error) {
	res, err := s.deps.Aggregate.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID, Now: s.now(), DryRun: dryRun})
	if err != nil {
		return res, err
	}
	if !dryRun {
		s.deps.Metrics.ObserveReconcile("user", res.Changed, res.RemovedCount)
	}
	if res.Changed {
		s.log.Info("Score reconciled",
			"user_id", userID,
			"removed", res.RemovedCount,
			"previous_total", res.PreviousTotal,
			"new_total", res.NewTotalScore,
			"dry_run", dryRun,
		)
	}
	return res, nil
}

// GetUserProgress reconciles first. A failed reconcile is logged and the read
// continues on the stored ledger; orphans are still filtered from the response.
func (s *scoreService) GetUserProgress(ctx context.Context, userID uuid.UUID) (*UserProgress, error) {
	const op = "Score.GetUserProgress"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}

	out := &UserProgress{UserID: userID, Entries: []*LedgerItem{}}
	res, err := s.deps.Aggregate.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID, Now: s.now()})
	switch {
	case err == nil:
		out.Reconciled = true
		s.deps.Metrics.ObserveReconcile("read", res.Changed, res.RemovedCount)
	case ctx.Err() != nil:
		return nil, domainagg.Wrap(domainagg.CodeRetryable, op, ctx.Err())
	default:
		s.log.Warn("Read-time reconcile failed; serving stored ledger", "user_id", userID, "error", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	root, err := s.deps.Scores.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.validEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Catalogue.Count(ctx)
	if err != nil {
		return nil, err
	}

	computed := 0
	for _, it := range items {
		computed += it.Problem.Points
	}
	out.Entries = items
	out.SolvedCount = len(items)
	out.TotalProblems = total
	out.TotalScore = computed
	if root != nil && out.Reconciled {
		out.TotalScore = root.TotalScore
	}
	if total > 0 {
		out.ProgressPercentage = math.Round(float64(out.SolvedCount)*10000/float64(total)) / 100
	}
	return out, nil
}

func (s *scoreService) Stats(ctx context.Context, userID uuid.UUID) (*DifficultyStats, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Score.Stats", "missing user_id", nil)
	}
	items, err := s.validEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &DifficultyStats{}
	for _, it := range items {
		switch catalogue.ParseDifficulty(string(it.Problem.Difficulty)) {
		case catalogue.DifficultyEasy:
			out.Easy++
		case catalogue.DifficultyMedium:
			out.Medium++
		case catalogue.DifficultyHard:
			out.Hard++
		default:
			out.Other++
		}
		out.Total++
	}
	return out, nil
}

// validEntries returns ledger entries whose problem still exists, in solved_at order.
func (s *scoreService) validEntries(ctx context.Context, userID uuid.UUID) ([]*LedgerItem, error) {
	entries, err := s.deps.Ledger.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProblemID)
	}
	problems, err := s.deps.Catalogue.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]*LedgerItem, 0, len(entries))
	for _, e := range entries {
		p, ok := problems[e.ProblemID]
		if !ok {
			continue
		}
		items = append(items, &LedgerItem{ProblemID: e.ProblemID, SolvedAt: e.SolvedAt, Problem: p})
	}
	return items, nil
}

func (s *scoreService) OnProblemDeleted(ctx context.Context, ev catalogue.DeletedEvent) error {
	res, err := s.deps.Aggregate.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: ev.ProblemID, PointValue: ev.PointValue})
	if err != nil {
		s.deps.Metrics.IncProblemDeletion("error")
		s.log.Warn("Problem deletion purge failed", "problem_id", ev.ProblemID, "error", err)
		return err
	}
	s.deps.Metrics.IncProblemDeletion("ok")
	s.log.Info("Purged deleted problem from ledgers",
		"problem_id", ev.ProblemID,
		"point_value", ev.PointValue,
		"users_affected", res.UsersAffected,
		"entries_removed", res.EntriesRemoved,
	)
	return nil
}

func (s *scoreService) RecentSweeps(ctx context.Context, limit int) ([]*score.ReconcileRun, error) {
	if s.deps.Runs == nil {
		return nil, nil
	}
	return s.deps.Runs.ListRecent(dbctx.Context{Ctx: ctx}, limit)
}
