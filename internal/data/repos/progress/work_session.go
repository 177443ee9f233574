package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/data/db"
	domain "github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// WorkSessionRepo only ever touches problem-scoped rows.
type WorkSessionRepo interface {
	// ListByPair returns every interval of the pair ordered by started_at.
	ListByPair(dbc dbctx.Context, userID, problemID uuid.UUID) ([]*domain.WorkSession, error)
	GetOpen(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.WorkSession, error)

	// CreateOpen inserts row as an open interval. It returns false without error when the
	// open-interval unique index already holds a row for the pair.
	CreateOpen(dbc dbctx.Context, row *domain.WorkSession) (bool, error)

	// Close ends an interval that is still open. False means it was already closed.
	Close(dbc dbctx.Context, id uuid.UUID, endedAt time.Time, durationMinutes float64) (bool, error)

	DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error)

	// SumClosedMinutesByUser totals closed problem intervals across all problems.
	SumClosedMinutesByUser(dbc dbctx.Context, userID uuid.UUID) (float64, error)
}

type workSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkSessionRepo(db *gorm.DB, baseLog *logger.Logger) WorkSessionRepo {
	return &workSessionRepo{db: db, log: baseLog.With("repo", "WorkSessionRepo")}
}

func (r *workSessionRepo) ListByPair(dbc dbctx.Context, userID, problemID uuid.UUID) ([]*domain.WorkSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.WorkSession
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ? AND scope = ?", userID, problemID, domain.ScopeProblem).
		Order("started_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workSessionRepo) GetOpen(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.WorkSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.WorkSession
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ? AND scope = ? AND ended_at IS NULL", userID, problemID, domain.ScopeProblem).
		Order("started_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *workSessionRepo) CreateOpen(dbc dbctx.Context, row *domain.WorkSession) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Scope = domain.ScopeProblem
	row.EndedAt = nil
	row.DurationMinutes = 0

	// Savepoint so a rejected insert does not poison the caller's transaction on Postgres.
	err := t.WithContext(dbc.Ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Create(row).Error
	})
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *workSessionRepo) Close(dbc dbctx.Context, id uuid.UUID, endedAt time.Time, durationMinutes float64) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	res := t.WithContext(dbc.Ctx).
		Model(&domain.WorkSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(map[string]interface{}{
			"ended_at":         endedAt.UTC(),
			"duration_minutes": durationMinutes,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *workSessionRepo) DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ? AND scope = ?", userID, problemID, domain.ScopeProblem).
		Delete(&domain.WorkSession{})
	return res.RowsAffected, res.Error
}

func (r *workSessionRepo) SumClosedMinutesByUser(dbc dbctx.Context, userID uuid.UUID) (float64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var total float64
	if err := t.WithContext(dbc.Ctx).
		Model(&domain.WorkSession{}).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Where("user_id = ? AND scope = ? AND ended_at IS NOT NULL", userID, domain.ScopeProblem).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
