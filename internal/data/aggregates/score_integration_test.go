package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

func TestScoreMarkSolvedAndUnsolved(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	userID := uuid.New()

	res, err := f.score.MarkSolved(ctx, domainagg.MarkSolvedInput{UserID: userID, ProblemID: p.ID})
	if err != nil || res.TotalScore != 20 {
		t.Fatalf("MarkSolved: want total=20 got=%+v err=%v", res, err)
	}
	_, err = f.score.MarkSolved(ctx, domainagg.MarkSolvedInput{UserID: userID, ProblemID: p.ID})
	if !errors.Is(err, score.ErrAlreadySolved) || !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("MarkSolved twice: want ErrAlreadySolved got=%v", err)
	}

	res, err = f.score.MarkUnsolved(ctx, domainagg.MarkUnsolvedInput{UserID: userID, ProblemID: p.ID})
	if err != nil || res.TotalScore != 0 {
		t.Fatalf("MarkUnsolved: want total=0 got=%+v err=%v", res, err)
	}
	_, err = f.score.MarkUnsolved(ctx, domainagg.MarkUnsolvedInput{UserID: userID, ProblemID: p.ID})
	if !errors.Is(err, score.ErrNotSolved) {
		t.Fatalf("MarkUnsolved twice: want ErrNotSolved got=%v", err)
	}

	_, err = f.score.MarkSolved(ctx, domainagg.MarkSolvedInput{UserID: userID, ProblemID: uuid.New()})
	if !errors.Is(err, catalogue.ErrProblemNotFound) {
		t.Fatalf("MarkSolved missing problem: want not found got=%v", err)
	}
}

func TestScoreMarkUnsolvedClampsAtZero(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)
	userID := uuid.New()
	testutil.SeedScore(t, ctx, f.db, userID, 12, p.ID)

	res, err := f.score.MarkUnsolved(ctx, domainagg.MarkUnsolvedInput{UserID: userID, ProblemID: p.ID})
	if err != nil || res.TotalScore != 0 {
		t.Fatalf("MarkUnsolved: want clamped 0 got=%+v err=%v", res, err)
	}
}

func TestScoreConcurrentSolvesKeepTotalExact(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	const n = 6
	problems := make([]*catalogue.Problem, n)
	for i := range problems {
		problems[i] = testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10+i)
	}
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range problems {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.score.MarkSolved(ctx, domainagg.MarkSolvedInput{UserID: userID, ProblemID: problems[i].ID})
		}(i)
	}
	wg.Wait()

	want := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("MarkSolved %d: %v", i, err)
		}
		want += problems[i].Points
	}
	row := f.userScore(t, userID)
	if row.TotalScore != want || row.Version != n {
		t.Fatalf("user score: want total=%d version=%d got total=%d version=%d", want, n, row.TotalScore, row.Version)
	}
}

func TestScoreReconcilePurgesOrphansAndIsIdempotent(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p1 := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	p2 := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	p3 := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyHard, 30)
	userID := uuid.New()
	testutil.SeedScore(t, ctx, f.db, userID, 60, p1.ID, p2.ID, p3.ID)

	if err := f.db.WithContext(ctx).Delete(&catalogue.Problem{}, "id = ?", p2.ID).Error; err != nil {
		t.Fatalf("delete problem: %v", err)
	}

	dry, err := f.score.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID, DryRun: true})
	if err != nil || !dry.Changed || dry.RemovedCount != 1 || dry.NewTotalScore != 40 {
		t.Fatalf("dry run: got=%+v err=%v", dry, err)
	}
	if got := f.ledgerCount(t, userID); got != 3 {
		t.Fatalf("dry run must not write: ledger=%d", got)
	}

	first, err := f.score.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !first.Changed || first.RemovedCount != 1 || first.NewTotalScore != 40 || first.PreviousTotal != 60 {
		t.Fatalf("reconcile: got=%+v", first)
	}
	if len(first.RemovedProblemIDs) != 1 || first.RemovedProblemIDs[0] != p2.ID {
		t.Fatalf("reconcile removed ids: got=%v", first.RemovedProblemIDs)
	}
	row := f.userScore(t, userID)
	if row.TotalScore != 40 || row.ReconciledAt == nil {
		t.Fatalf("persisted: got=%+v", row)
	}

	second, err := f.score.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID})
	if err != nil {
		t.Fatalf("reconcile again: %v", err)
	}
	if second.Changed || second.RemovedCount != 0 || second.NewTotalScore != 40 {
		t.Fatalf("reconcile again: want no-op got=%+v", second)
	}
	if after := f.userScore(t, userID); after.Version != row.Version {
		t.Fatalf("no-op reconcile must not write: version %d -> %d", row.Version, after.Version)
	}
}

func TestScoreReconcileCorrectsDrift(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)
	userID := uuid.New()
	testutil.SeedScore(t, ctx, f.db, userID, 999, p.ID)

	res, err := f.score.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: userID})
	if err != nil || !res.Changed || res.RemovedCount != 0 || res.NewTotalScore != 10 {
		t.Fatalf("reconcile drift: got=%+v err=%v", res, err)
	}

	empty, err := f.score.Reconcile(ctx, domainagg.ReconcileUserInput{UserID: uuid.New()})
	if err != nil || empty.Changed {
		t.Fatalf("reconcile unknown user: got=%+v err=%v", empty, err)
	}
}

func TestScoreRemoveProblemAcrossHolders(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	q := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)

	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	testutil.SeedScore(t, ctx, f.db, a, 30, p.ID, q.ID)
	testutil.SeedScore(t, ctx, f.db, b, 20, p.ID)
	testutil.SeedScore(t, ctx, f.db, c, 5, p.ID)
	testutil.SeedScore(t, ctx, f.db, d, 10, q.ID)

	_, err := f.score.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: p.ID, PointValue: p.Points})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("remove live problem: want precondition got=%v", err)
	}

	if err := f.db.WithContext(ctx).Delete(&catalogue.Problem{}, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("delete problem: %v", err)
	}
	res, err := f.score.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: p.ID, PointValue: p.Points})
	if err != nil {
		t.Fatalf("RemoveProblem: %v", err)
	}
	if res.UsersAffected != 3 || res.EntriesRemoved != 3 {
		t.Fatalf("RemoveProblem: want 3/3 got=%+v", res)
	}

	cases := []struct {
		user    uuid.UUID
		total   int
		entries int64
	}{
		{a, 10, 1},
		{b, 0, 0},
		{c, 0, 0},
		{d, 10, 1},
	}
	for _, tc := range cases {
		if got := f.userScore(t, tc.user).TotalScore; got != tc.total {
			t.Fatalf("user %s total: want=%d got=%d", tc.user, tc.total, got)
		}
		if got := f.ledgerCount(t, tc.user); got != tc.entries {
			t.Fatalf("user %s entries: want=%d got=%d", tc.user, tc.entries, got)
		}
	}

	again, err := f.score.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: p.ID, PointValue: p.Points})
	if err != nil || again.UsersAffected != 0 {
		t.Fatalf("RemoveProblem redelivery: want no-op got=%+v err=%v", again, err)
	}
	if got := f.userScore(t, a).TotalScore; got != 10 {
		t.Fatalf("redelivery must not subtract twice: got=%d", got)
	}
}

// staleHolderLedger answers ListUserIDsByProblem from a snapshot taken before
// another replica purged the problem.
type staleHolderLedger struct {
	repos.LedgerRepo
	holders []uuid.UUID
}

func (l staleHolderLedger) ListUserIDsByProblem(dbctx.Context, uuid.UUID) ([]uuid.UUID, error) {
	return l.holders, nil
}

func TestScoreRemoveProblemChargesOnlyPurgedRows(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	p := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyMedium, 20)
	q := testutil.SeedProblem(t, ctx, f.db, catalogue.DifficultyEasy, 10)

	u := uuid.New()
	testutil.SeedScore(t, ctx, f.db, u, 30, p.ID, q.ID)
	if err := f.db.WithContext(ctx).Delete(&catalogue.Problem{}, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("delete problem: %v", err)
	}

	log := testutil.Logger(t)
	ledger := repos.NewLedgerRepo(f.db, log)
	snapshot, err := ledger.ListUserIDsByProblem(dbctx.Context{Ctx: ctx}, p.ID)
	if err != nil || len(snapshot) != 1 {
		t.Fatalf("snapshot holders: want=1 got=%d err=%v", len(snapshot), err)
	}

	if _, err := f.score.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: p.ID, PointValue: p.Points}); err != nil {
		t.Fatalf("first RemoveProblem: %v", err)
	}

	replica := NewScoreAggregate(ScoreAggregateDeps{
		Base:     BaseDeps{DB: f.db, Log: log},
		Problems: repos.NewProblemRepo(f.db, log),
		Scores:   repos.NewUserScoreRepo(f.db, log),
		Ledger:   staleHolderLedger{LedgerRepo: ledger, holders: snapshot},
	})
	res, err := replica.RemoveProblem(ctx, domainagg.RemoveProblemInput{ProblemID: p.ID, PointValue: p.Points})
	if err != nil {
		t.Fatalf("replica RemoveProblem: %v", err)
	}
	if res.UsersAffected != 0 || res.EntriesRemoved != 0 {
		t.Fatalf("replica RemoveProblem: want 0/0 got=%+v", res)
	}
	if got := f.userScore(t, u).TotalScore; got != 10 {
		t.Fatalf("total after replayed purge: want=10 got=%d", got)
	}
	if got := f.ledgerCount(t, u); got != 1 {
		t.Fatalf("entries after replayed purge: want=1 got=%d", got)
	}
}
