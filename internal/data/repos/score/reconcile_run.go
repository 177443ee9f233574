package score

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type ReconcileRunRepo interface {
	Create(dbc dbctx.Context, row *domain.ReconcileRun) error
	Finish(dbc dbctx.Context, id uuid.UUID, fin RunFinish) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ReconcileRun, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*domain.ReconcileRun, error)
}

// RunFinish is the terminal state written when a sweep ends.
type RunFinish struct {
	Status        string
	UsersScanned  int
	UsersChanged  int
	EntriesPurged int
	Summary       datatypes.JSON
	FinishedAt    time.Time
}

type reconcileRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReconcileRunRepo(db *gorm.DB, baseLog *logger.Logger) ReconcileRunRepo {
	return &reconcileRunRepo{db: db, log: baseLog.With("repo", "ReconcileRunRepo")}
}

func (r *reconcileRunRepo) Create(dbc dbctx.Context, row *domain.ReconcileRun) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.StartedAt.IsZero() {
		row.StartedAt = time.Now().UTC()
	}
	if row.Status == "" {
		row.Status = domain.RunStatusRunning
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *reconcileRunRepo) Finish(dbc dbctx.Context, id uuid.UUID, fin RunFinish) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	finishedAt := fin.FinishedAt.UTC()
	if fin.FinishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	updates := map[string]interface{}{
		"status":         fin.Status,
		"users_scanned":  fin.UsersScanned,
		"users_changed":  fin.UsersChanged,
		"entries_purged": fin.EntriesPurged,
		"finished_at":    finishedAt,
	}
	if len(fin.Summary) > 0 {
		updates["summary"] = fin.Summary
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.ReconcileRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *reconcileRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ReconcileRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.ReconcileRun
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *reconcileRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*domain.ReconcileRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*domain.ReconcileRun
	if err := t.WithContext(dbc.Ctx).Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
