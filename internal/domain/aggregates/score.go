package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ScoreAggregateContract = Contract{
	Name:              "Score.UserScoreAggregate",
	WriteTxOwnership:  WriteTxOwnedByAggregate,
	ReadPolicy:        ReadPolicyInvariantScoped,
	Tables:            []string{"user_scores", "score_ledger_entries"},
	ReplaysStaleScore: true,
	Notes:             "Owns a user's ledger entries and total score; every write is a version compare-and-set so reconciliation and solve traffic never overwrite each other.",
}

// ScoreAggregate maintains totalScore = sum(points of ledger entries whose problem still exists).
//
// Stale compare-and-set writes return CodeConflict with score.ErrStaleScore as cause;
// nothing is persisted in that case.
type ScoreAggregate interface {
	Aggregate

	// MarkSolved appends a ledger entry and adds the problem's points.
	MarkSolved(ctx context.Context, in MarkSolvedInput) (ScoreChangeResult, error)

	// MarkUnsolved removes a ledger entry and subtracts the points, clamped at zero.
	MarkUnsolved(ctx context.Context, in MarkUnsolvedInput) (ScoreChangeResult, error)

	// Reconcile drops orphaned entries and recomputes the total from the catalogue.
	Reconcile(ctx context.Context, in ReconcileUserInput) (ReconcileUserResult, error)

	// RemoveProblem strips a deleted problem from every ledger that references it.
	RemoveProblem(ctx context.Context, in RemoveProblemInput) (RemoveProblemResult, error)
}

type MarkSolvedInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
	SolvedAt  time.Time
}

type MarkUnsolvedInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
}

type ScoreChangeResult struct {
	UserID     uuid.UUID
	ProblemID  uuid.UUID
	TotalScore int
	Version    int
}

type ReconcileUserInput struct {
	UserID uuid.UUID
	Now    time.Time
	// DryRun computes the outcome without writing.
	DryRun bool
}

type ReconcileUserResult struct {
	UserID            uuid.UUID
	RemovedCount      int
	RemovedProblemIDs []uuid.UUID
	PreviousTotal     int
	NewTotalScore     int
	Changed           bool
}

type RemoveProblemInput struct {
	ProblemID  uuid.UUID
	PointValue int
}

type RemoveProblemResult struct {
	ProblemID      uuid.UUID
	UsersAffected  int
	EntriesRemoved int64
}
