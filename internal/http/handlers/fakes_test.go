package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/ctxutil"
	"github.com/mentiby/tracker-backend/internal/services"
)

type fakeProgress struct {
	start    domainagg.StartSessionResult
	stop     domainagg.StopSessionResult
	complete domainagg.CompleteResult
	unsolve  domainagg.UnsolveResult
	status   *services.ProblemStatus
	overview *services.ProgressOverview
	err      error

	gotUser, gotProblem uuid.UUID
}

func (f *fakeProgress) Start(_ context.Context, u, p uuid.UUID) (domainagg.StartSessionResult, error) {
	f.gotUser, f.gotProblem = u, p
	return f.start, f.err
}
func (f *fakeProgress) Stop(_ context.Context, u, p uuid.UUID) (domainagg.StopSessionResult, error) {
	f.gotUser, f.gotProblem = u, p
	return f.stop, f.err
}
func (f *fakeProgress) Complete(_ context.Context, u, p uuid.UUID) (domainagg.CompleteResult, error) {
	f.gotUser, f.gotProblem = u, p
	return f.complete, f.err
}
func (f *fakeProgress) Unsolve(_ context.Context, u, p uuid.UUID) (domainagg.UnsolveResult, error) {
	f.gotUser, f.gotProblem = u, p
	return f.unsolve, f.err
}
func (f *fakeProgress) Status(_ context.Context, u, p uuid.UUID) (*services.ProblemStatus, error) {
	f.gotUser, f.gotProblem = u, p
	return f.status, f.err
}
func (f *fakeProgress) Overview(_ context.Context, u uuid.UUID) (*services.ProgressOverview, error) {
	f.gotUser = u
	return f.overview, f.err
}
func (f *fakeProgress) ListSolved(_ context.Context, u uuid.UUID) ([]*services.SolvedProblem, error) {
	f.gotUser = u
	return []*services.SolvedProblem{}, f.err
}

type fakeScores struct {
	change    domainagg.ScoreChangeResult
	progress  *services.UserProgress
	reconcile domainagg.ReconcileUserResult
	sweep     *services.SweepReport
	sweepOpts services.SweepOptions
	err       error
}

func (f *fakeScores) MarkSolved(context.Context, uuid.UUID, uuid.UUID) (domainagg.ScoreChangeResult, error) {
	return f.change, f.err
}
func (f *fakeScores) MarkUnsolved(context.Context, uuid.UUID, uuid.UUID) (domainagg.ScoreChangeResult, error) {
	return f.change, f.err
}
func (f *fakeScores) GetUserProgress(context.Context, uuid.UUID) (*services.UserProgress, error) {
	return f.progress, f.err
}
func (f *fakeScores) Stats(context.Context, uuid.UUID) (*services.DifficultyStats, error) {
	return &services.DifficultyStats{}, f.err
}
func (f *fakeScores) ReconcileUser(context.Context, uuid.UUID, bool) (domainagg.ReconcileUserResult, error) {
	return f.reconcile, f.err
}
func (f *fakeScores) ReconcileAll(_ context.Context, opts services.SweepOptions) (*services.SweepReport, error) {
	f.sweepOpts = opts
	return f.sweep, f.err
}
func (f *fakeScores) RecentSweeps(context.Context, int) ([]*score.ReconcileRun, error) {
	return nil, f.err
}
func (f *fakeScores) OnProblemDeleted(context.Context, catalogue.DeletedEvent) error { return f.err }

type fakeCatalogue struct {
	ev  *catalogue.DeletedEvent
	err error
}

func (f *fakeCatalogue) DeleteProblem(context.Context, uuid.UUID) (*catalogue.DeletedEvent, error) {
	return f.ev, f.err
}

// asUser stands in for the auth middleware.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID}))
		}
		c.Next()
	}
}
