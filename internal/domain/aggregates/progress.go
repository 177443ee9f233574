package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ProgressAggregateContract = Contract{
	Name:              "Progress.PairAggregate",
	WriteTxOwnership:  WriteTxOwnedByAggregate,
	ReadPolicy:        ReadPolicyInvariantScoped,
	Tables:            []string{"work_sessions", "completions", "user_scores", "score_ledger_entries"},
	ReplaysStaleScore: true,
	Notes:             "Owns work sessions and the completion record of one (user, problem) pair; completion and unsolve also move the score ledger in the same transaction.",
}

// ProgressAggregate owns the session/completion invariants of a (user, problem) pair.
//
// Domain outcomes are returned as *aggregates.Error whose Cause is the matching
// sentinel: catalogue.ErrProblemNotFound (CodeNotFound), progress.ErrAlreadyCompleted
// (CodeConflict), progress.ErrNoSession / progress.ErrNotCompleted / *progress.TimeLockError
// (CodePreconditionFailed). Store timeouts surface as CodeRetryable.
type ProgressAggregate interface {
	Aggregate

	// StartSession opens a work interval, or returns the interval that is already open.
	StartSession(ctx context.Context, in StartSessionInput) (StartSessionResult, error)

	// StopSession closes the most recently opened interval. Nothing open is not an error.
	StopSession(ctx context.Context, in StopSessionInput) (StopSessionResult, error)

	// Complete evaluates the time lock and creates the unique completion record.
	Complete(ctx context.Context, in CompleteInput) (CompleteResult, error)

	// Unsolve removes the completion and purges every session of the pair.
	Unsolve(ctx context.Context, in UnsolveInput) (UnsolveResult, error)
}

type StartSessionInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
	Now       time.Time
}

type StartSessionResult struct {
	SessionID          uuid.UUID
	StartedAt          time.Time
	FirstStartedAt     time.Time
	EarliestCompleteAt time.Time
	RecommendedMinutes int
	// Resumed is true when an already-open interval was returned unchanged.
	Resumed bool
}

type StopSessionInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
	Now       time.Time
}

type StopSessionResult struct {
	// Stopped is false when there was no open interval (no-op).
	Stopped         bool
	SessionID       uuid.UUID
	EndedAt         time.Time
	DurationMinutes float64
}

type CompleteInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
	Now       time.Time
}

type CompleteResult struct {
	CompletionID       uuid.UUID
	StartedAt          time.Time
	CompletedAt        time.Time
	TotalMinutes       float64
	ActualMinutes      int
	RecommendedMinutes int
	WithinRecommended  bool
	// LedgerEntryAdded is false when the simple solve path had already recorded the problem.
	LedgerEntryAdded bool
	TotalScore       int
}

type UnsolveInput struct {
	UserID    uuid.UUID
	ProblemID uuid.UUID
}

type UnsolveResult struct {
	SessionsPurged     int64
	LedgerEntryRemoved bool
	TotalScore         int
}
