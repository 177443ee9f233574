package score

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// UserScoreRepo reads score roots. Writes that change total_score go through the
// version compare-and-set in the aggregate layer; SubtractClamped is the one bulk exception.
type UserScoreRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID) (*domain.UserScore, error)
	// GetOrInit returns the root, creating a zero row at version 0 when missing.
	GetOrInit(dbc dbctx.Context, userID uuid.UUID) (*domain.UserScore, error)

	// ListUserIDs pages through every user with a score root in user_id order.
	ListUserIDs(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

	// SubtractClamped lowers each listed user's total by points, never below zero,
	// bumping the version so in-flight compare-and-set writers retry.
	SubtractClamped(dbc dbctx.Context, userIDs []uuid.UUID, points int) (int64, error)
}

type userScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserScoreRepo(db *gorm.DB, baseLog *logger.Logger) UserScoreRepo {
	return &userScoreRepo{db: db, log: baseLog.With("repo", "UserScoreRepo")}
}

func (r *userScoreRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*domain.UserScore, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*domain.UserScore
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *userScoreRepo) GetOrInit(dbc dbctx.Context, userID uuid.UUID) (*domain.UserScore, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	row := &domain.UserScore{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, userID)
}

func (r *userScoreRepo) ListUserIDs(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := t.WithContext(dbc.Ctx).Model(&domain.UserScore{})
	if after != uuid.Nil {
		q = q.Where("user_id > ?", after)
	}
	var ids []uuid.UUID
	if err := q.Order("user_id ASC").Limit(limit).Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userScoreRepo) SubtractClamped(dbc dbctx.Context, userIDs []uuid.UUID, points int) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if points < 0 {
		points = 0
	}
	res := t.WithContext(dbc.Ctx).
		Model(&domain.UserScore{}).
		Where("user_id IN ?", userIDs).
		Updates(map[string]interface{}{
			"total_score": gorm.Expr("CASE WHEN total_score > ? THEN total_score - ? ELSE 0 END", points, points),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
