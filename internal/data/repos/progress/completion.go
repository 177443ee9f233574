package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type CompletionRepo interface {
	// Create fails with a unique violation when the pair is already completed.
	Create(dbc dbctx.Context, row *domain.Completion) error
	GetByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.Completion, error)
	DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error)

	// ListByUser returns completions newest first.
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Completion, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type completionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return &completionRepo{db: db, log: baseLog.With("repo", "CompletionRepo")}
}

func (r *completionRepo) Create(dbc dbctx.Context, row *domain.Completion) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *completionRepo) GetByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.Completion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.Completion
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *completionRepo) DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		Delete(&domain.Completion{})
	return res.RowsAffected, res.Error
}

func (r *completionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Completion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Completion
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *completionRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&domain.Completion{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
