package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// DeletionPublisher is the outbound half of the problem bus.
type DeletionPublisher interface {
	Publish(ctx context.Context, ev catalogue.DeletedEvent) error
}

type CatalogueService interface {
	// DeleteProblem removes the catalogue row and announces the deletion. A failed
	// publish is logged only; read-time reconciliation still drops the orphans.
	DeleteProblem(ctx context.Context, problemID uuid.UUID) (*catalogue.DeletedEvent, error)
}

type catalogueService struct {
	log       *logger.Logger
	problems  repos.ProblemRepo
	publisher DeletionPublisher
	now       func() time.Time
}

func NewCatalogueService(log *logger.Logger, problems repos.ProblemRepo, publisher DeletionPublisher) CatalogueService {
	return &catalogueService{
		log:       log.With("service", "CatalogueService"),
		problems:  problems,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *catalogueService) DeleteProblem(ctx context.Context, problemID uuid.UUID) (*catalogue.DeletedEvent, error) {
	const op = "Catalogue.DeleteProblem"
	if problemID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing problem_id", nil)
	}
	deleted, err := s.problems.Delete(dbctx.Context{Ctx: ctx}, problemID)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, domainagg.Fail(domainagg.CodeNotFound, op, catalogue.ErrProblemNotFound)
	}

	ev := &catalogue.DeletedEvent{
		ProblemID:  deleted.ID,
		PointValue: deleted.Points,
		DeletedAt:  s.now().UTC(),
	}
	s.log.Info("Problem deleted", "problem_id", ev.ProblemID, "point_value", ev.PointValue)
	if s.publisher == nil {
		return ev, nil
	}
	if err := s.publisher.Publish(ctx, *ev); err != nil {
		s.log.Warn("Publish problem deletion failed", "problem_id", ev.ProblemID, "error", err)
	}
	return ev, nil
}
