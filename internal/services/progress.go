package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// ProblemStatus is the resolved time-lock state for one (user, problem) pair.
type ProblemStatus struct {
	ProblemID          uuid.UUID            `json:"problem_id"`
	Difficulty         catalogue.Difficulty `json:"difficulty"`
	State              progress.State       `json:"state"`
	RecommendedMinutes int                  `json:"recommended_minutes"`
	RemainingMinutes   *int                 `json:"remaining_minutes,omitempty"`
	FirstStartedAt     *time.Time           `json:"first_started_at,omitempty"`
	EarliestCompleteAt *time.Time           `json:"earliest_complete_at,omitempty"`
	TotalSessions      int                  `json:"total_sessions"`
	HasOpenSession     bool                 `json:"has_open_session"`
	Completion         *progress.Completion `json:"completion,omitempty"`
}

type ProgressOverview struct {
	SolvedCount        int64 `json:"solved_count"`
	TotalProblems      int64 `json:"total_problems"`
	MinutesInvested    int   `json:"minutes_invested"`
	CurrentStreakDays  int   `json:"current_streak_days"`
	ProgressPercentage int   `json:"progress_percentage"`
}

type SolvedProblem struct {
	Completion *progress.Completion `json:"completion"`
	Problem    *catalogue.Problem   `json:"problem"`
}

type ProgressService interface {
	Start(ctx context.Context, userID, problemID uuid.UUID) (domainagg.StartSessionResult, error)
	Stop(ctx context.Context, userID, problemID uuid.UUID) (domainagg.StopSessionResult, error)
	Complete(ctx context.Context, userID, problemID uuid.UUID) (domainagg.CompleteResult, error)
	Unsolve(ctx context.Context, userID, problemID uuid.UUID) (domainagg.UnsolveResult, error)

	Status(ctx context.Context, userID, problemID uuid.UUID) (*ProblemStatus, error)
	Overview(ctx context.Context, userID uuid.UUID) (*ProgressOverview, error)
	ListSolved(ctx context.Context, userID uuid.UUID) ([]*SolvedProblem, error)
}

type ProgressServiceDeps struct {
	Aggregate   domainagg.ProgressAggregate
	Catalogue   catalogue.Reader
	Sessions    repos.WorkSessionRepo
	Completions repos.CompletionRepo
	Policy      *timelock.Policy
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

type progressService struct {
	log  *logger.Logger
	deps ProgressServiceDeps
}

func NewProgressService(log *logger.Logger, deps ProgressServiceDeps) ProgressService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Policy == nil {
		deps.Policy = timelock.Default(log)
	}
	return &progressService{log: log.With("service", "ProgressService"), deps: deps}
}

func (s *progressService) now() time.Time { return s.deps.Now().UTC() }

func (s *progressService) Start(ctx context.Context, userID, problemID uuid.UUID) (domainagg.StartSessionResult, error) {
	res, err := s.deps.Aggregate.StartSession(ctx, domainagg.StartSessionInput{UserID: userID, ProblemID: problemID, Now: s.now()})
	if err != nil {
		return res, err
	}
	if !res.Resumed {
		s.log.Debug("Work session opened", "user_id", userID, "problem_id", problemID, "session_id", res.SessionID)
	}
	return res, nil
}

func (s *progressService) Stop(ctx context.Context, userID, problemID uuid.UUID) (domainagg.StopSessionResult, error) {
	return s.deps.Aggregate.StopSession(ctx, domainagg.StopSessionInput{UserID: userID, ProblemID: problemID, Now: s.now()})
}

func (s *progressService) Complete(ctx context.Context, userID, problemID uuid.UUID) (domainagg.CompleteResult, error) {
	res, err := s.deps.Aggregate.Complete(ctx, domainagg.CompleteInput{UserID: userID, ProblemID: problemID, Now: s.now()})
	if err != nil {
		var lock *progress.TimeLockError
		if errors.As(err, &lock) {
			s.log.Debug("Completion refused by time-lock", "user_id", userID, "problem_id", problemID, "remaining_minutes", lock.RemainingMinutes)
		}
		return res, err
	}
	s.log.Info("Problem completed",
		"user_id", userID,
		"problem_id", problemID,
		"actual_minutes", res.ActualMinutes,
		"within_recommended", res.WithinRecommended,
	)
	return res, nil
}

func (s *progressService) Unsolve(ctx context.Context, userID, problemID uuid.UUID) (domainagg.UnsolveResult, error) {
	return s.deps.Aggregate.Unsolve(ctx, domainagg.UnsolveInput{UserID: userID, ProblemID: problemID})
}

func (s *progressService) Status(ctx context.Context, userID, problemID uuid.UUID) (*ProblemStatus, error) {
	const op = "Progress.Status"
	if userID == uuid.Nil || problemID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or problem_id", nil)
	}
	p, err := s.deps.Catalogue.Get(ctx, problemID)
	if err != nil {
		if errors.Is(err, catalogue.ErrProblemNotFound) {
			return nil, domainagg.Fail(domainagg.CodeNotFound, op, err)
		}
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	sessions, err := s.deps.Sessions.ListByPair(dbc, userID, problemID)
	if err != nil {
		return nil, err
	}
	completion, err := s.deps.Completions.GetByPair(dbc, userID, problemID)
	if err != nil {
		return nil, err
	}
	return resolveStatus(s.deps.Policy, p, sessions, completion, s.now()), nil
}

// resolveStatus is pure: completion wins, then session presence, then the clock.
func resolveStatus(policy *timelock.Policy, p *catalogue.Problem, sessions []*progress.WorkSession, completion *progress.Completion, now time.Time) *ProblemStatus {
	st := &ProblemStatus{
		ProblemID:          p.ID,
		Difficulty:         p.Difficulty,
		RecommendedMinutes: policy.RecommendedMinutes(p.Difficulty),
		TotalSessions:      len(sessions),
		Completion:         completion,
	}
	if len(sessions) > 0 {
		first := sessions[0].StartedAt
		for _, ws := range sessions {
			if ws.StartedAt.Before(first) {
				first = ws.StartedAt
			}
			if ws.Open() {
				st.HasOpenSession = true
			}
		}
		first = first.UTC()
		earliest := policy.EarliestCompleteAt(first, p.Difficulty)
		st.FirstStartedAt = &first
		st.EarliestCompleteAt = &earliest
	}

	switch {
	case completion != nil:
		st.State = progress.StateCompleted
	case len(sessions) == 0:
		st.State = progress.StateNotStarted
	case timelock.Locked(now, *st.EarliestCompleteAt):
		st.State = progress.StateLocked
		remaining := timelock.RemainingMinutes(now, *st.EarliestCompleteAt)
		st.RemainingMinutes = &remaining
	default:
		st.State = progress.StateUnlocked
	}
	return st
}

func (s *progressService) Overview(ctx context.Context, userID uuid.UUID) (*ProgressOverview, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Progress.Overview", "missing user_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	completions, err := s.deps.Completions.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Catalogue.Count(ctx)
	if err != nil {
		return nil, err
	}
	minutes, err := s.deps.Sessions.SumClosedMinutesByUser(dbc, userID)
	if err != nil {
		return nil, err
	}

	out := &ProgressOverview{
		SolvedCount:       int64(len(completions)),
		TotalProblems:     total,
		MinutesInvested:   int(math.Round(minutes)),
		CurrentStreakDays: streakDays(completions, s.now()),
	}
	if total > 0 {
		out.ProgressPercentage = int(math.Round(float64(out.SolvedCount) * 100 / float64(total)))
	}
	return out, nil
}

// streakDays counts consecutive UTC calendar days, ending today, with at least one completion.
func streakDays(completions []*progress.Completion, now time.Time) int {
	days := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		days[c.CompletedAt.UTC().Format(time.DateOnly)] = struct{}{}
	}
	streak := 0
	for d := now.UTC(); ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[d.Format(time.DateOnly)]; !ok {
			return streak
		}
		streak++
	}
}

func (s *progressService) ListSolved(ctx context.Context, userID uuid.UUID) ([]*SolvedProblem, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Progress.ListSolved", "missing user_id", nil)
	}
	completions, err := s.deps.Completions.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(completions))
	for _, c := range completions {
		ids = append(ids, c.ProblemID)
	}
	problems, err := s.deps.Catalogue.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*SolvedProblem, 0, len(completions))
	for _, c := range completions {
		p, ok := problems[c.ProblemID]
		if !ok {
			continue
		}
		out = append(out, &SolvedProblem{Completion: c, Problem: p})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Completion.CompletedAt.After(out[j].Completion.CompletedAt)
	})
	return out, nil
}
