package score

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type LedgerRepo interface {
	// Create fails with a unique violation when the user already holds an entry for the problem.
	Create(dbc dbctx.Context, row *domain.LedgerEntry) error
	GetByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.LedgerEntry, error)
	DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error)

	// ListByUser returns entries ordered by solved_at.
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.LedgerEntry, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)

	ListUserIDsByProblem(dbc dbctx.Context, problemID uuid.UUID) ([]uuid.UUID, error)
	// DeleteByProblemForUsers returns the users whose entry this call actually removed.
	DeleteByProblemForUsers(dbc dbctx.Context, problemID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

type ledgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerRepo(db *gorm.DB, baseLog *logger.Logger) LedgerRepo {
	return &ledgerRepo{db: db, log: baseLog.With("repo", "LedgerRepo")}
}

func (r *ledgerRepo) Create(dbc dbctx.Context, row *domain.LedgerEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *ledgerRepo) GetByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (*domain.LedgerEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.LedgerEntry
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

func (r *ledgerRepo) DeleteByPair(dbc dbctx.Context, userID, problemID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		Delete(&domain.LedgerEntry{})
	return res.RowsAffected, res.Error
}

func (r *ledgerRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.LedgerEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.LedgerEntry
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("solved_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ledgerRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&domain.LedgerEntry{})
	return res.RowsAffected, res.Error
}

func (r *ledgerRepo) ListUserIDsByProblem(dbc dbctx.Context, problemID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if err := t.WithContext(dbc.Ctx).
		Model(&domain.LedgerEntry{}).
		Where("problem_id = ?", problemID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ledgerRepo) DeleteByProblemForUsers(dbc dbctx.Context, problemID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var gone []domain.LedgerEntry
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "user_id"}}}).
		Where("problem_id = ? AND user_id IN ?", problemID, userIDs).
		Delete(&gone).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(gone))
	for _, e := range gone {
		out = append(out, e.UserID)
	}
	return out, nil
}
