package aggregates

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/db"
	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

type ProgressAggregateDeps struct {
	Base BaseDeps

	Problems    repos.ProblemRepo
	Sessions    repos.WorkSessionRepo
	Completions repos.CompletionRepo
	Scores      repos.UserScoreRepo
	Ledger      repos.LedgerRepo

	Policy *timelock.Policy
}

type progressAggregate struct {
	deps   ProgressAggregateDeps
	ledger scoreLedger
}

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Policy == nil {
		deps.Policy = timelock.Default(deps.Base.Log)
	}
	return &progressAggregate{
		deps: deps,
		ledger: scoreLedger{
			scores: deps.Scores,
			ledger: deps.Ledger,
			guard:  deps.Base.CASGuard,
		},
	}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func (a *progressAggregate) configured() bool {
	return a.deps.Problems != nil && a.deps.Sessions != nil && a.deps.Completions != nil &&
		a.deps.Scores != nil && a.deps.Ledger != nil
}

func (a *progressAggregate) StartSession(ctx context.Context, in domainagg.StartSessionInput) (domainagg.StartSessionResult, error) {
	const op = "Progress.StartSession"
	var out domainagg.StartSessionResult

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos not configured", nil)
	}
	now := normalizeNow(in.Now)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.requireOpenProblem(dbc, op, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}

		sessions, err := a.deps.Sessions.ListByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		open := latestOpen(sessions)
		resumed := open != nil
		if open == nil {
			row := &progress.WorkSession{
				ID:        uuid.New(),
				UserID:    in.UserID,
				ProblemID: in.ProblemID,
				StartedAt: now,
				CreatedAt: now,
				UpdatedAt: now,
			}
			created, err := a.deps.Sessions.CreateOpen(dbc, row)
			if err != nil {
				return err
			}
			if created {
				open = row
				sessions = append(sessions, row)
			} else {
				// Lost the race to a concurrent start; return the winner.
				open, err = a.deps.Sessions.GetOpen(dbc, in.UserID, in.ProblemID)
				if err != nil {
					return err
				}
				if open == nil {
					return RetryableError("open session disappeared during start")
				}
				resumed = true
				sessions = append(sessions, open)
			}
		}

		first := firstStart(sessions)
		out = domainagg.StartSessionResult{
			SessionID:          open.ID,
			StartedAt:          open.StartedAt.UTC(),
			FirstStartedAt:     first,
			RecommendedMinutes: a.deps.Policy.RecommendedMinutes(p.Difficulty),
			EarliestCompleteAt: a.deps.Policy.EarliestCompleteAt(first, p.Difficulty),
			Resumed:            resumed,
		}
		return nil
	})
	return out, err
}

func (a *progressAggregate) StopSession(ctx context.Context, in domainagg.StopSessionInput) (domainagg.StopSessionResult, error) {
	const op = "Progress.StopSession"
	var out domainagg.StopSessionResult

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos not configured", nil)
	}
	now := normalizeNow(in.Now)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		open, err := a.deps.Sessions.GetOpen(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		if open == nil {
			return nil
		}
		dur := progress.MinutesBetween(open.StartedAt, now)
		ok, err := a.deps.Sessions.Close(dbc, open.ID, now, dur)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent stop closed it first.
			return nil
		}
		out = domainagg.StopSessionResult{
			Stopped:         true,
			SessionID:       open.ID,
			EndedAt:         now,
			DurationMinutes: dur,
		}
		return nil
	})
	return out, err
}

func (a *progressAggregate) Complete(ctx context.Context, in domainagg.CompleteInput) (domainagg.CompleteResult, error) {
	const op = "Progress.Complete"
	var out domainagg.CompleteResult

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos not configured", nil)
	}
	now := normalizeNow(in.Now)

	err := executeWriteCAS(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.requireOpenProblem(dbc, op, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}

		sessions, err := a.deps.Sessions.ListByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		first := firstStart(sessions)
		total := closedMinutes(sessions)
		recommended := a.deps.Policy.RecommendedMinutes(p.Difficulty)
		earliest := a.deps.Policy.EarliestCompleteAt(first, p.Difficulty)
		from := pairState(sessions, now, earliest)
		if !progress.CanTransition(from, progress.StateCompleted) {
			return rejectCompletion(op, from, now, earliest)
		}

		c := &progress.Completion{
			ID:                uuid.New(),
			UserID:            in.UserID,
			ProblemID:         in.ProblemID,
			StartedAt:         first,
			CompletedAt:       now,
			ActualMinutes:     int(math.Round(total)),
			WithinRecommended: total <= float64(recommended),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := a.deps.Completions.Create(dbc, c); err != nil {
			if db.IsUniqueViolation(err) {
				return domainagg.Fail(domainagg.CodeConflict, op, progress.ErrAlreadyCompleted)
			}
			return err
		}

		change, err := a.ledger.award(dbc, op, in.UserID, p, now)
		if err != nil {
			return err
		}

		out = domainagg.CompleteResult{
			CompletionID:       c.ID,
			StartedAt:          first,
			CompletedAt:        now,
			TotalMinutes:       total,
			ActualMinutes:      c.ActualMinutes,
			RecommendedMinutes: recommended,
			WithinRecommended:  c.WithinRecommended,
			LedgerEntryAdded:   change.Changed,
			TotalScore:         change.Total,
		}
		return nil
	})
	return out, err
}

func (a *progressAggregate) Unsolve(ctx context.Context, in domainagg.UnsolveInput) (domainagg.UnsolveResult, error) {
	const op = "Progress.Unsolve"
	var out domainagg.UnsolveResult

	if err := validatePair(op, in.UserID, in.ProblemID); err != nil {
		return out, err
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos not configured", nil)
	}
	now := time.Now().UTC()

	err := executeWriteCAS(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.deps.Problems.GetByID(dbc, in.ProblemID)
		if err != nil {
			return err
		}
		if p == nil {
			return domainagg.Fail(domainagg.CodeNotFound, op, catalogue.ErrProblemNotFound)
		}

		removed, err := a.deps.Completions.DeleteByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return domainagg.Fail(domainagg.CodePreconditionFailed, op, progress.ErrNotCompleted)
		}
		purged, err := a.deps.Sessions.DeleteByPair(dbc, in.UserID, in.ProblemID)
		if err != nil {
			return err
		}
		change, err := a.ledger.revoke(dbc, in.UserID, in.ProblemID, p.Points, now)
		if err != nil {
			return err
		}
		out = domainagg.UnsolveResult{
			SessionsPurged:     purged,
			LedgerEntryRemoved: change.Changed,
			TotalScore:         change.Total,
		}
		return nil
	})
	return out, err
}

// pairState places an uncompleted pair in the time-lock state machine.
func pairState(sessions []*progress.WorkSession, now, earliest time.Time) progress.State {
	switch {
	case len(sessions) == 0:
		return progress.StateNotStarted
	case timelock.Locked(now, earliest):
		return progress.StateLocked
	default:
		return progress.StateUnlocked
	}
}

func rejectCompletion(op string, from progress.State, now, earliest time.Time) error {
	switch from {
	case progress.StateNotStarted:
		return domainagg.Fail(domainagg.CodePreconditionFailed, op, progress.ErrNoSession)
	case progress.StateLocked:
		lock := &progress.TimeLockError{
			EarliestCompleteAt: earliest,
			RemainingMinutes:   timelock.RemainingMinutes(now, earliest),
		}
		return domainagg.NewError(domainagg.CodePreconditionFailed, op, lock.Error(), lock)
	default:
		return domainagg.Fail(domainagg.CodeConflict, op, progress.ErrAlreadyCompleted)
	}
}

// requireOpenProblem loads the problem and rejects pairs that are already completed.
func (a *progressAggregate) requireOpenProblem(dbc dbctx.Context, op string, userID, problemID uuid.UUID) (*catalogue.Problem, error) {
	p, err := a.deps.Problems.GetByID(dbc, problemID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domainagg.Fail(domainagg.CodeNotFound, op, catalogue.ErrProblemNotFound)
	}
	done, err := a.deps.Completions.GetByPair(dbc, userID, problemID)
	if err != nil {
		return nil, err
	}
	if done != nil {
		return nil, domainagg.Fail(domainagg.CodeConflict, op, progress.ErrAlreadyCompleted)
	}
	return p, nil
}

func validatePair(op string, userID, problemID uuid.UUID) error {
	if userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if problemID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing problem_id", nil)
	}
	return nil
}

func latestOpen(sessions []*progress.WorkSession) *progress.WorkSession {
	var open *progress.WorkSession
	for _, s := range sessions {
		if s.Open() && (open == nil || s.StartedAt.After(open.StartedAt)) {
			open = s
		}
	}
	return open
}

func firstStart(sessions []*progress.WorkSession) time.Time {
	var first time.Time
	for _, s := range sessions {
		if first.IsZero() || s.StartedAt.Before(first) {
			first = s.StartedAt
		}
	}
	return first.UTC()
}

// closedMinutes sums finished intervals only; an open interval has no duration yet.
func closedMinutes(sessions []*progress.WorkSession) float64 {
	var total float64
	for _, s := range sessions {
		if s.Open() {
			continue
		}
		total += s.DurationMinutes
	}
	return total
}
