package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/modules/progress/timelock"
)

func TestResolveStatusStates(t *testing.T) {
	policy := timelock.Fallback()
	p := &catalogue.Problem{ID: uuid.New(), Difficulty: catalogue.DifficultyEasy}
	end := t0.Add(10 * time.Minute)
	closed := &progress.WorkSession{StartedAt: t0, EndedAt: &end}
	later := &progress.WorkSession{StartedAt: t0.Add(20 * time.Minute)}

	cases := []struct {
		name       string
		sessions   []*progress.WorkSession
		completion *progress.Completion
		now        time.Time
		want       progress.State
		remaining  int
	}{
		{"no sessions", nil, nil, t0, progress.StateNotStarted, 0},
		{"inside lock", []*progress.WorkSession{later, closed}, nil, t0.Add(25 * time.Minute), progress.StateLocked, 5},
		{"lock rounds up", []*progress.WorkSession{closed}, nil, t0.Add(25*time.Minute + 30*time.Second), progress.StateLocked, 5},
		{"at boundary", []*progress.WorkSession{closed}, nil, t0.Add(30 * time.Minute), progress.StateUnlocked, 0},
		{"completed wins", []*progress.WorkSession{closed}, &progress.Completion{ID: uuid.New()}, t0.Add(time.Minute), progress.StateCompleted, 0},
	}
	for _, tc := range cases {
		st := resolveStatus(policy, p, tc.sessions, tc.completion, tc.now)
		if st.State != tc.want {
			t.Fatalf("%s: state want=%s got=%s", tc.name, tc.want, st.State)
		}
		if tc.want == progress.StateLocked {
			if st.RemainingMinutes == nil || *st.RemainingMinutes != tc.remaining {
				t.Fatalf("%s: remaining want=%d got=%v", tc.name, tc.remaining, st.RemainingMinutes)
			}
		} else if st.RemainingMinutes != nil {
			t.Fatalf("%s: remaining must be unset, got=%d", tc.name, *st.RemainingMinutes)
		}
		if len(tc.sessions) > 0 {
			if st.FirstStartedAt == nil || !st.FirstStartedAt.Equal(t0) {
				t.Fatalf("%s: first start want=%s got=%v", tc.name, t0, st.FirstStartedAt)
			}
			if !st.EarliestCompleteAt.Equal(t0.Add(30 * time.Minute)) {
				t.Fatalf("%s: earliest want=%s got=%s", tc.name, t0.Add(30*time.Minute), st.EarliestCompleteAt)
			}
		}
	}
}

func TestStreakDays(t *testing.T) {
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	mk := func(ts ...time.Time) []*progress.Completion {
		out := make([]*progress.Completion, 0, len(ts))
		for _, x := range ts {
			out = append(out, &progress.Completion{CompletedAt: x})
		}
		return out
	}
	day := func(d, h int) time.Time { return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC) }

	cases := []struct {
		name string
		in   []*progress.Completion
		want int
	}{
		{"empty", nil, 0},
		{"nothing today", mk(day(9, 12), day(8, 12)), 0},
		{"three days", mk(day(10, 1), day(9, 23), day(8, 0), day(6, 12)), 3},
		{"duplicates same day", mk(day(10, 1), day(10, 5)), 1},
	}
	for _, tc := range cases {
		if got := streakDays(tc.in, now); got != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, got)
		}
	}
}

func TestProgressServiceLifecycle(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)
	userID := uuid.New()

	st, err := f.progress.Status(ctx, userID, p.ID)
	if err != nil || st.State != progress.StateNotStarted {
		t.Fatalf("initial status: got=%+v err=%v", st, err)
	}

	if _, err := f.progress.Start(ctx, userID, p.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Set(t0.Add(20 * time.Minute))
	if _, err := f.progress.Stop(ctx, userID, p.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	f.clock.Set(t0.Add(25 * time.Minute))
	st, err = f.progress.Status(ctx, userID, p.ID)
	if err != nil || st.State != progress.StateLocked || *st.RemainingMinutes != 5 || st.TotalSessions != 1 {
		t.Fatalf("locked status: got=%+v err=%v", st, err)
	}
	_, err = f.progress.Complete(ctx, userID, p.ID)
	var lock *progress.TimeLockError
	if !errors.As(err, &lock) || lock.RemainingMinutes != 5 {
		t.Fatalf("complete under lock: want TimeLockError(5) got=%v", err)
	}

	f.clock.Set(t0.Add(31 * time.Minute))
	res, err := f.progress.Complete(ctx, userID, p.ID)
	if err != nil || res.ActualMinutes != 20 || !res.WithinRecommended {
		t.Fatalf("complete: got=%+v err=%v", res, err)
	}
	st, _ = f.progress.Status(ctx, userID, p.ID)
	if st.State != progress.StateCompleted || st.Completion == nil {
		t.Fatalf("completed status: got=%+v", st)
	}

	ov, err := f.progress.Overview(ctx, userID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.SolvedCount != 1 || ov.TotalProblems != 2 || ov.MinutesInvested != 20 || ov.ProgressPercentage != 50 || ov.CurrentStreakDays != 1 {
		t.Fatalf("overview: got=%+v", ov)
	}

	solved, err := f.progress.ListSolved(ctx, userID)
	if err != nil || len(solved) != 1 || solved[0].Problem.ID != p.ID {
		t.Fatalf("solved list: got=%v err=%v", solved, err)
	}

	if _, err := f.progress.Unsolve(ctx, userID, p.ID); err != nil {
		t.Fatalf("unsolve: %v", err)
	}
	st, _ = f.progress.Status(ctx, userID, p.ID)
	if st.State != progress.StateNotStarted || st.TotalSessions != 0 {
		t.Fatalf("status after unsolve: got=%+v", st)
	}

	_, err = f.progress.Status(ctx, userID, uuid.New())
	if !domainagg.IsCode(err, domainagg.CodeNotFound) || !errors.Is(err, catalogue.ErrProblemNotFound) {
		t.Fatalf("status unknown problem: got=%v", err)
	}
}
