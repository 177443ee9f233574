package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos/testutil"
	domain "github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

func TestWorkSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewWorkSessionRepo(db, testutil.Logger(t))

	userID, problemID := uuid.New(), uuid.New()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := &domain.WorkSession{UserID: userID, ProblemID: problemID, StartedAt: t0, CreatedAt: t0, UpdatedAt: t0}
	created, err := repo.CreateOpen(dbc, first)
	if err != nil || !created {
		t.Fatalf("CreateOpen: created=%v err=%v", created, err)
	}

	// A second open interval for the same pair is rejected by the partial unique index.
	dup := &domain.WorkSession{UserID: userID, ProblemID: problemID, StartedAt: t0.Add(time.Minute), CreatedAt: t0, UpdatedAt: t0}
	created, err = repo.CreateOpen(dbc, dup)
	if err != nil {
		t.Fatalf("CreateOpen dup: %v", err)
	}
	if created {
		t.Fatalf("CreateOpen dup: expected rejection")
	}

	open, err := repo.GetOpen(dbc, userID, problemID)
	if err != nil || open == nil || open.ID != first.ID {
		t.Fatalf("GetOpen: row=%+v err=%v", open, err)
	}

	ok, err := repo.Close(dbc, first.ID, t0.Add(10*time.Minute), 10)
	if err != nil || !ok {
		t.Fatalf("Close: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Close(dbc, first.ID, t0.Add(20*time.Minute), 20)
	if err != nil || ok {
		t.Fatalf("Close twice: want ok=false got ok=%v err=%v", ok, err)
	}

	// With the first interval closed a new one can open.
	second := &domain.WorkSession{UserID: userID, ProblemID: problemID, StartedAt: t0.Add(20 * time.Minute), CreatedAt: t0, UpdatedAt: t0}
	if created, err := repo.CreateOpen(dbc, second); err != nil || !created {
		t.Fatalf("CreateOpen second: created=%v err=%v", created, err)
	}

	rows, err := repo.ListByPair(dbc, userID, problemID)
	if err != nil {
		t.Fatalf("ListByPair: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != first.ID || rows[1].ID != second.ID {
		t.Fatalf("ListByPair: unexpected order/len: %+v", rows)
	}
	if rows[0].DurationMinutes != 10 || rows[0].EndedAt == nil {
		t.Fatalf("closed row: %+v", rows[0])
	}

	sum, err := repo.SumClosedMinutesByUser(dbc, userID)
	if err != nil || sum != 10 {
		t.Fatalf("SumClosedMinutesByUser: want=10 got=%v err=%v", sum, err)
	}

	// Site-scoped rows are invisible to and untouched by the repo.
	site := &domain.WorkSession{ID: uuid.New(), UserID: userID, ProblemID: problemID, Scope: domain.ScopeSite, StartedAt: t0, CreatedAt: t0, UpdatedAt: t0}
	if err := db.WithContext(ctx).Create(site).Error; err != nil {
		t.Fatalf("seed site row: %v", err)
	}

	n, err := repo.DeleteByPair(dbc, userID, problemID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByPair: want=2 got=%d err=%v", n, err)
	}
	var remaining int64
	if err := db.WithContext(ctx).Model(&domain.WorkSession{}).Where("user_id = ?", userID).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("site row should survive purge: remaining=%d", remaining)
	}
}
