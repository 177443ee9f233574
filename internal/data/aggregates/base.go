package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard

	// Timeout bounds one whole write transaction; zero leaves it to the caller's context.
	Timeout time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	txCtx, cancel := dbctx.WithTimeout(ctx, deps.Timeout)
	defer cancel()
	err := deps.Runner.InTx(txCtx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	if status == string(domainagg.CodeInternal) || status == string(domainagg.CodeRetryable) {
		deps.Log.Warn("aggregate write failed", "op", op, "status", status, "error", mapped)
	}
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}

// maxCASAttempts bounds how often a write is replayed after losing a score compare-and-set.
const maxCASAttempts = 4

// executeWriteCAS replays executeWrite while the score root keeps moving underneath it.
func executeWriteCAS(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	var err error
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err = executeWrite(ctx, deps, op, fn)
		if !errors.Is(err, score.ErrStaleScore) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return err
}

func normalizeNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
