package catalogue

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type ProblemRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Problem) ([]*domain.Problem, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Problem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Problem, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	Count(dbc dbctx.Context) (int64, error)

	// Delete removes the row and returns it as it was, or nil when it did not exist.
	Delete(dbc dbctx.Context, id uuid.UUID) (*domain.Problem, error)
}

type problemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProblemRepo(db *gorm.DB, baseLog *logger.Logger) ProblemRepo {
	return &problemRepo{db: db, log: baseLog.With("repo", "ProblemRepo")}
}

func (r *problemRepo) Create(dbc dbctx.Context, rows []*domain.Problem) ([]*domain.Problem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Problem{}, nil
	}
	for _, p := range rows {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Category == "" {
			p.Category = "General"
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *problemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Problem, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.Problem
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *problemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Problem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Problem
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *problemRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if err := t.WithContext(dbc.Ctx).Model(&domain.Problem{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *problemRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&domain.Problem{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *problemRepo) Delete(dbc dbctx.Context, id uuid.UUID) (*domain.Problem, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	existing, err := r.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, id)
	if err != nil || existing == nil {
		return nil, err
	}
	res := t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&domain.Problem{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return existing, nil
}
