package testutil

import (
	"context"
	"sync"

	"github.com/mentiby/tracker-backend/internal/data/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

// FaultyTxRunner wraps a real runner and injects failures around the body.
// Injected errors are returned from inside Inner's transaction, so the
// body's writes are rolled back exactly as a failed commit would leave them.
type FaultyTxRunner struct {
	Inner aggregates.TxRunner

	FailBegin  error
	FailCommit error
	// StaleAttempts makes the first n transactions lose the score compare-and-set.
	StaleAttempts int

	mu        sync.Mutex
	Calls     int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*FaultyTxRunner)(nil)

func (r *FaultyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Calls++
	call := r.Calls
	failBegin, failCommit, stale := r.FailBegin, r.FailCommit, r.StaleAttempts
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	err := r.Inner.InTx(ctx, func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		if call <= stale {
			return score.ErrStaleScore
		}
		return failCommit
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Rollbacks++
	} else {
		r.Commits++
	}
	return err
}
