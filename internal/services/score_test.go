package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

func TestGetUserProgressReconcilesOnRead(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	easy := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	medium := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	hard := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)
	testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)
	userID := uuid.New()
	testutil.SeedScore(t, ctx, f.db, userID, 60, easy.ID, medium.ID, hard.ID)

	// Removed behind the engine's back: no event, so only the read can heal it.
	if err := f.db.WithContext(ctx).Delete(&catalogue.Problem{}, "id = ?", medium.ID).Error; err != nil {
		t.Fatalf("delete problem: %v", err)
	}

	got, err := f.score.GetUserProgress(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserProgress: %v", err)
	}
	if !got.Reconciled || got.TotalScore != 40 || got.SolvedCount != 2 || got.TotalProblems != 3 {
		t.Fatalf("progress: got=%+v", got)
	}
	if got.ProgressPercentage != 66.67 {
		t.Fatalf("percentage: want=66.67 got=%v", got.ProgressPercentage)
	}
	if len(got.Entries) != 2 || got.Entries[0].ProblemID != easy.ID || got.Entries[1].ProblemID != hard.ID {
		t.Fatalf("entries: got=%+v", got.Entries)
	}

	stats, err := f.score.Stats(ctx, userID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Easy != 1 || stats.Medium != 0 || stats.Hard != 1 || stats.Total != 2 {
		t.Fatalf("stats: got=%+v", stats)
	}
}

func TestGetUserProgressForNewUser(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)

	got, err := f.score.GetUserProgress(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetUserProgress: %v", err)
	}
	if got.TotalScore != 0 || got.SolvedCount != 0 || got.ProgressPercentage != 0 || got.Entries == nil {
		t.Fatalf("empty progress: got=%+v", got)
	}
}

func TestMarkSolvedThroughService(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	userID := uuid.New()

	res, err := f.score.MarkSolved(ctx, userID, p.ID)
	if err != nil || res.TotalScore != 20 {
		t.Fatalf("MarkSolved: got=%+v err=%v", res, err)
	}
	if _, err := f.score.MarkSolved(ctx, userID, p.ID); !errors.Is(err, score.ErrAlreadySolved) {
		t.Fatalf("MarkSolved again: want ErrAlreadySolved got=%v", err)
	}
	res, err = f.score.MarkUnsolved(ctx, userID, p.ID)
	if err != nil || res.TotalScore != 0 {
		t.Fatalf("MarkUnsolved: got=%+v err=%v", res, err)
	}
}

func TestDeleteProblemPurgesHolders(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	keep := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	testutil.SeedScore(t, ctx, f.db, users[0], 30, p.ID, keep.ID)
	testutil.SeedScore(t, ctx, f.db, users[1], 20, p.ID)
	testutil.SeedScore(t, ctx, f.db, users[2], 5, p.ID)
	testutil.SeedScore(t, ctx, f.db, users[3], 10, keep.ID)

	ev, err := f.catalogue.DeleteProblem(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteProblem: %v", err)
	}
	if ev.ProblemID != p.ID || ev.PointValue != 20 {
		t.Fatalf("event: got=%+v", ev)
	}
	if len(f.bus.events) != 1 {
		t.Fatalf("published: want=1 got=%d", len(f.bus.events))
	}

	want := []int{10, 0, 0, 10}
	for i, u := range users {
		got, err := f.score.GetUserProgress(ctx, u)
		if err != nil {
			t.Fatalf("GetUserProgress %d: %v", i, err)
		}
		if got.TotalScore != want[i] {
			t.Fatalf("user %d total: want=%d got=%d", i, want[i], got.TotalScore)
		}
	}

	_, err = f.catalogue.DeleteProblem(ctx, p.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("DeleteProblem twice: want not found got=%v", err)
	}
}

func TestDeleteProblemSurvivesPublishFailure(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	f.bus.onPub = nil
	f.bus.err = errors.New("redis down")

	if _, err := f.catalogue.DeleteProblem(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProblem: want nil got=%v", err)
	}
	still, err := f.repos.problems.GetByID(dbctx.Context{Ctx: ctx}, p.ID)
	if err != nil || still != nil {
		t.Fatalf("problem must be gone: got=%v err=%v", still, err)
	}
}

func TestReconcileAllSweepsEveryUser(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	a := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	b := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)

	var drifted []uuid.UUID
	for i := 0; i < 5; i++ {
		u := uuid.New()
		testutil.SeedScore(t, ctx, f.db, u, 40, a.ID, b.ID)
		drifted = append(drifted, u)
	}
	clean := uuid.New()
	testutil.SeedScore(t, ctx, f.db, clean, 10, a.ID)

	if err := f.db.WithContext(ctx).Delete(&catalogue.Problem{}, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("delete problem: %v", err)
	}

	dry, err := f.score.ReconcileAll(ctx, SweepOptions{Trigger: "test", DryRun: true})
	if err != nil {
		t.Fatalf("dry sweep: %v", err)
	}
	if dry.UsersScanned != 6 || dry.UsersChanged != 5 || dry.EntriesPurged != 5 {
		t.Fatalf("dry sweep: got=%+v", dry)
	}
	progressAfterDry, _ := f.score.Stats(ctx, drifted[0])
	if progressAfterDry.Total != 1 {
		t.Fatalf("stats filter orphans: got=%+v", progressAfterDry)
	}

	rep, err := f.score.ReconcileAll(ctx, SweepOptions{Trigger: "test"})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Status != score.RunStatusSucceeded || rep.UsersScanned != 6 || rep.UsersChanged != 5 || rep.EntriesPurged != 5 {
		t.Fatalf("sweep: got=%+v", rep)
	}

	for _, u := range drifted {
		var row score.UserScore
		if err := f.db.WithContext(ctx).Where("user_id = ?", u).First(&row).Error; err != nil {
			t.Fatalf("load score %s: %v", u, err)
		}
		if row.TotalScore != 10 {
			t.Fatalf("user %s total after sweep: want=10 got=%d", u, row.TotalScore)
		}
	}

	again, err := f.score.ReconcileAll(ctx, SweepOptions{Trigger: "test"})
	if err != nil || again.UsersChanged != 0 || again.EntriesPurged != 0 {
		t.Fatalf("second sweep must be a no-op: got=%+v err=%v", again, err)
	}

	run, err := f.repos.runs.GetByID(dbctx.Context{Ctx: ctx}, rep.RunID)
	if err != nil || run == nil {
		t.Fatalf("run row: got=%v err=%v", run, err)
	}
	if run.Status != score.RunStatusSucceeded || run.UsersChanged != 5 || run.FinishedAt == nil {
		t.Fatalf("run row: got=%+v", run)
	}
	var summary SweepReport
	if err := json.Unmarshal(run.Summary, &summary); err != nil || summary.EntriesPurged != 5 {
		t.Fatalf("run summary: got=%s err=%v", string(run.Summary), err)
	}

	recent, err := f.score.RecentSweeps(ctx, 10)
	if err != nil || len(recent) != 3 {
		t.Fatalf("recent sweeps: want=3 got=%d err=%v", len(recent), err)
	}
}

func TestReconcileAllHonoursCancelledContext(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	a := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	testutil.SeedScore(t, ctx, f.db, uuid.New(), 10, a.ID)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	rep, err := f.score.ReconcileAll(cctx, SweepOptions{})
	if err == nil && rep.Status == score.RunStatusSucceeded && rep.UsersScanned > 0 {
		t.Fatalf("cancelled sweep must not scan: got=%+v", rep)
	}
}
