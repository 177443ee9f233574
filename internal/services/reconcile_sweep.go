package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

type SweepConfig struct {
	Concurrency int
	BatchSize   int
	Timeout     time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return c
}

type SweepOptions struct {
	Trigger string
	DryRun  bool
}

// SweepReport mirrors the ReconcileRun row written for the sweep.
type SweepReport struct {
	RunID         uuid.UUID   `json:"run_id"`
	Trigger       string      `json:"trigger"`
	Status        string      `json:"status"`
	DryRun        bool        `json:"dry_run"`
	UsersScanned  int         `json:"users_scanned"`
	UsersChanged  int         `json:"users_changed"`
	EntriesPurged int         `json:"entries_purged"`
	UsersFailed   int         `json:"users_failed"`
	FailedUsers   []uuid.UUID `json:"failed_users,omitempty"`
	TimedOut      bool        `json:"timed_out"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
}

// failedUsersCap bounds how many failing ids are kept in the run summary.
const failedUsersCap = 50

// ReconcileAll pages through every score root and reconciles each user with
// bounded fan-out. Per-user failures are counted, not fatal; the sweep stops
// early only when its timeout expires or ctx is cancelled.
func (s *scoreService) ReconcileAll(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	const op = "Score.ReconcileAll"
	cfg := s.deps.Sweep
	if opts.Trigger == "" {
		opts.Trigger = "manual"
	}
	rep := &SweepReport{
		RunID:     uuid.New(),
		Trigger:   opts.Trigger,
		Status:    score.RunStatusRunning,
		DryRun:    opts.DryRun,
		StartedAt: s.now(),
	}
	if s.deps.Runs != nil {
		row := &score.ReconcileRun{
			ID:        rep.RunID,
			Trigger:   rep.Trigger,
			Status:    rep.Status,
			StartedAt: rep.StartedAt,
		}
		if err := s.deps.Runs.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
	}
	s.log.Info("Reconcile sweep started", "run_id", rep.RunID, "trigger", rep.Trigger, "dry_run", rep.DryRun)

	sweepCtx, cancel := dbctx.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var mu sync.Mutex
	var listErr error
	after := uuid.Nil
	for {
		if sweepCtx.Err() != nil {
			rep.TimedOut = true
			break
		}
		ids, err := s.deps.Scores.ListUserIDs(dbctx.Context{Ctx: sweepCtx}, after, cfg.BatchSize)
		if err != nil {
			if sweepCtx.Err() != nil {
				rep.TimedOut = true
			} else {
				listErr = err
			}
			break
		}
		if len(ids) == 0 {
			break
		}
		after = ids[len(ids)-1]

		g, gctx := errgroup.WithContext(sweepCtx)
		g.SetLimit(cfg.Concurrency)
		for _, userID := range ids {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				res, err := s.deps.Aggregate.Reconcile(gctx, domainagg.ReconcileUserInput{UserID: userID, Now: s.now(), DryRun: opts.DryRun})
				mu.Lock()
				defer mu.Unlock()
				rep.UsersScanned++
				if err != nil {
					rep.UsersFailed++
					if len(rep.FailedUsers) < failedUsersCap {
						rep.FailedUsers = append(rep.FailedUsers, userID)
					}
					s.log.Warn("Reconcile sweep user failed", "run_id", rep.RunID, "user_id", userID, "error", err)
					return nil
				}
				if res.Changed {
					rep.UsersChanged++
					rep.EntriesPurged += res.RemovedCount
				}
				if !opts.DryRun {
					s.deps.Metrics.ObserveReconcile(opts.Trigger, res.Changed, res.RemovedCount)
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(ids) < cfg.BatchSize {
			break
		}
	}
	if errors.Is(sweepCtx.Err(), context.DeadlineExceeded) {
		rep.TimedOut = true
	}

	rep.FinishedAt = s.now()
	switch {
	case listErr != nil:
		rep.Status = score.RunStatusFailed
	case rep.TimedOut || rep.UsersFailed > 0:
		rep.Status = score.RunStatusPartial
	default:
		rep.Status = score.RunStatusSucceeded
	}
	s.finishRun(context.WithoutCancel(ctx), rep)

	s.log.Info("Reconcile sweep finished",
		"run_id", rep.RunID,
		"status", rep.Status,
		"users_scanned", rep.UsersScanned,
		"users_changed", rep.UsersChanged,
		"entries_purged", rep.EntriesPurged,
		"users_failed", rep.UsersFailed,
		"timed_out", rep.TimedOut,
	)
	if listErr != nil {
		return rep, domainagg.Wrap(domainagg.CodeInternal, op, listErr)
	}
	return rep, nil
}

func (s *scoreService) finishRun(ctx context.Context, rep *SweepReport) {
	if s.deps.Runs == nil {
		return
	}
	summary, err := json.Marshal(rep)
	if err != nil {
		s.log.Warn("Encode sweep summary failed", "run_id", rep.RunID, "error", err)
		summary = nil
	}
	finished := rep.FinishedAt
	err = s.deps.Runs.Finish(dbctx.Context{Ctx: ctx}, rep.RunID, repos.RunFinish{
		Status:        rep.Status,
		UsersScanned:  rep.UsersScanned,
		UsersChanged:  rep.UsersChanged,
		EntriesPurged: rep.EntriesPurged,
		Summary:       datatypes.JSON(summary),
		FinishedAt:    finished,
	})
	if err != nil {
		s.log.Warn("Record sweep result failed", "run_id", rep.RunID, "error", err)
	}
}
