package catalogue

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

type reader struct {
	problems ProblemRepo
}

// NewReader exposes the problem table through the catalogue boundary.
func NewReader(problems ProblemRepo) domain.Reader {
	return &reader{problems: problems}
}

func (r *reader) Get(ctx context.Context, id uuid.UUID) (*domain.Problem, error) {
	p, err := r.problems.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProblemNotFound
	}
	return p, nil
}

func (r *reader) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := r.problems.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func (r *reader) ListAllIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	ids, err := r.problems.ListIDs(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *reader) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Problem, error) {
	rows, err := r.problems.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.Problem, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *reader) Count(ctx context.Context) (int64, error) {
	return r.problems.Count(dbctx.Context{Ctx: ctx})
}
