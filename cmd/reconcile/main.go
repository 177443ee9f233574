package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/app"
	"github.com/mentiby/tracker-backend/internal/platform/shutdown"
	"github.com/mentiby/tracker-backend/internal/services"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var users idList
	var dryRun bool
	flag.Var(&users, "user", "user_id to reconcile (repeatable); omit to sweep every user")
	flag.BoolVar(&dryRun, "dry-run", false, "report drift without writing")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	scores := application.Services.Score
	if len(users) == 0 {
		rep, err := scores.ReconcileAll(ctx, services.SweepOptions{Trigger: "cli", DryRun: dryRun})
		if err != nil {
			fmt.Printf("sweep failed: %v\n", err)
		}
		if rep != nil {
			fmt.Printf("run=%s status=%s scanned=%d changed=%d purged=%d failed=%d timed_out=%t dry_run=%t\n",
				rep.RunID, rep.Status, rep.UsersScanned, rep.UsersChanged, rep.EntriesPurged, rep.UsersFailed, rep.TimedOut, rep.DryRun)
		}
		if err != nil {
			application.Close()
			os.Exit(1)
		}
		return
	}

	failed := 0
	for _, raw := range users {
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			fmt.Printf("skip invalid user_id %q\n", raw)
			failed++
			continue
		}
		res, err := scores.ReconcileUser(ctx, id, dryRun)
		if err != nil {
			fmt.Printf("reconcile %s failed: %v\n", id, err)
			failed++
			continue
		}
		prefix := ""
		if dryRun {
			prefix = "[dry-run] "
		}
		fmt.Printf("%suser=%s changed=%t removed=%d total=%d->%d\n",
			prefix, id, res.Changed, res.RemovedCount, res.PreviousTotal, res.NewTotalScore)
	}
	fmt.Printf("done; users=%d failed=%d\n", len(users), failed)
	if failed > 0 {
		application.Close()
		os.Exit(1)
	}
}
