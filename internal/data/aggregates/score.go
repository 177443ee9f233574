package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

type ScoreAggregateDeps struct {
	Base BaseDeps

	Problems repos.ProblemRepo
	Scores   repos.UserScoreRepo
	Ledger   repos.LedgerRepo
}

type scoreAggregate struct {
	deps   ScoreAggregateDeps
	ledger scoreLedger
}

func NewScoreAggregate(deps ScoreAggregateDeps) domainagg.ScoreAggregate {
	deps.Base = deps.Base.withDefaults()
	return &scoreAggregate{
		deps: deps,
		ledger: scoreLedger{
			scores: deps.Scores,
			ledger: deps.Ledger,
			guard:  deps.Base.CASGuard,
		},
	}
}

func (a *scoreAggregate) Contract() domainagg.Contract {
	return domainagg.ScoreAggregateContract
}

func (a *scoreAggregate) configured() bool {
	return a.deps.Problems != nil && a.deps.Scores != nil && a.deps.Ledger != nil
}

func (a *scoreAggregate) MarkSolved(ctx context.Context, in domainagg.MarkSolvedInput) (domainagg.ScoreChangeResult, error) {
	const op = "Score.MarkSolved"
	out := domainagg.ScoreChangeResult{UserID: in.UserID, ProblemID: in.ProblemID}

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "score aggregate repos not configured", nil)
	}
	solvedAt := normalizeNow(in.SolvedAt)

	err := executeWriteCAS(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.requireProblem(dbc, op, in.ProblemID)
		if err != nil {
			return err
		}
		existing, err := a.deps.Ledger.GetByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.Fail(domainagg.CodeConflict, op, score.ErrAlreadySolved)
		}
		change, err := a.ledger.award(dbc, op, in.UserID, p, solvedAt)
		if err != nil {
			return err
		}
		out.TotalScore = change.Total
		out.Version = change.Version
		return nil
	})
	return out, err
}

func (a *scoreAggregate) MarkUnsolved(ctx context.Context, in domainagg.MarkUnsolvedInput) (domainagg.ScoreChangeResult, error) {
	const op = "Score.MarkUnsolved"
	out := domainagg.ScoreChangeResult{UserID: in.UserID, ProblemID: in.ProblemID}

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "score aggregate repos not configured", nil)
	}

	err := executeWriteCAS(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.requireProblem(dbc, op, in.ProblemID)
		if err != nil {
			return err
		}
		existing, err := a.deps.Ledger.GetByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domainagg.Fail(domainagg.CodePreconditionFailed, op, score.ErrNotSolved)
		}
		change, err := a.ledger.revoke(dbc, in.UserID, in.ProblemID, p.Points, time.Now().UTC())
		if err != nil {
			return err
		}
		out.TotalScore = change.Total
		out.Version = change.Version
		return nil
	})
	return out, err
}

// Reconcile is not replayed on a lost compare-and-set: the transaction rolls back, the
// ledger stays as it was, and the next read reconciles again.
func (a *scoreAggregate) Reconcile(ctx context.Context, in domainagg.ReconcileUserInput) (domainagg.ReconcileUserResult, error) {
	const op = "Score.Reconcile"
	out := domainagg.ReconcileUserResult{UserID: in.UserID}

	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "score aggregate repos not configured", nil)
	}
	now := normalizeNow(in.Now)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res := domainagg.ReconcileUserResult{UserID: in.UserID}

		root, err := a.deps.Scores.Get(dbc, in.UserID)
		if err != nil {
			return err
		}
		entries, err := a.deps.Ledger.ListByUser(dbc, in.UserID)
		if err != nil {
			return err
		}
		if root == nil && len(entries) == 0 {
			out = res
			return nil
		}
		if root != nil {
			res.PreviousTotal = root.TotalScore
		}

		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ProblemID)
		}
		live, err := a.deps.Problems.GetByIDs(dbc, ids)
		if err != nil {
			return err
		}
		points := make(map[uuid.UUID]int, len(live))
		for _, p := range live {
			points[p.ID] = p.Points
		}

		var orphanIDs []uuid.UUID
		computed := 0
		for _, e := range entries {
			pts, ok := points[e.ProblemID]
			if !ok {
				orphanIDs = append(orphanIDs, e.ID)
				res.RemovedProblemIDs = append(res.RemovedProblemIDs, e.ProblemID)
				continue
			}
			computed += pts
		}
		res.RemovedCount = len(orphanIDs)
		res.NewTotalScore = computed
		res.Changed = len(orphanIDs) > 0 || computed != res.PreviousTotal
		out = res

		if !res.Changed || in.DryRun {
			return nil
		}

		if root == nil {
			if root, err = a.deps.Scores.GetOrInit(dbc, in.UserID); err != nil {
				return err
			}
		}
		if _, err := a.deps.Ledger.DeleteByIDs(dbc, orphanIDs); err != nil {
			return err
		}
		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, userScoresTable, "user_id", in.UserID, root.Version, map[string]any{
			"total_score":   computed,
			"reconciled_at": now,
			"updated_at":    now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return score.ErrStaleScore
		}
		return nil
	})
	if err != nil {
		return domainagg.ReconcileUserResult{UserID: in.UserID}, err
	}
	return out, nil
}

func (a *scoreAggregate) RemoveProblem(ctx context.Context, in domainagg.RemoveProblemInput) (domainagg.RemoveProblemResult, error) {
	const op = "Score.RemoveProblem"
	out := domainagg.RemoveProblemResult{ProblemID: in.ProblemID}

	if in.ProblemID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing problem_id", nil)
	}
	if in.PointValue < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "point value must be >= 0", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "score aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		still, err := a.deps.Problems.GetByID(dbc, in.ProblemID)
		if err != nil {
			return err
		}
		if still != nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "problem is still in the catalogue", nil)
		}

		holders, err := a.deps.Ledger.ListUserIDsByProblem(dbc, in.ProblemID)
		if err != nil {
			return err
		}
		if len(holders) == 0 {
			return nil
		}
		// Another replica may purge the same holders first; only rows this
		// transaction deleted are charged.
		purged, err := a.deps.Ledger.DeleteByProblemForUsers(dbc, in.ProblemID, holders)
		if err != nil {
			return err
		}
		if len(purged) == 0 {
			return nil
		}
		if _, err := a.deps.Scores.SubtractClamped(dbc, purged, in.PointValue); err != nil {
			return err
		}
		out.UsersAffected = len(purged)
		out.EntriesRemoved = int64(len(purged))
		return nil
	})
	if err != nil {
		return domainagg.RemoveProblemResult{ProblemID: in.ProblemID}, err
	}
	return out, nil
}

func (a *scoreAggregate) requireProblem(dbc dbctx.Context, op string, problemID uuid.UUID) (*catalogue.Problem, error) {
	p, err := a.deps.Problems.GetByID(dbc, problemID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domainagg.Fail(domainagg.CodeNotFound, op, catalogue.ErrProblemNotFound)
	}
	return p, nil
}
