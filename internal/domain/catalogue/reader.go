package catalogue

import (
	"context"

	"github.com/google/uuid"
)

// Reader is everything this engine is allowed to ask of the problem catalogue.
type Reader interface {
	// Get returns ErrProblemNotFound when the problem does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Problem, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListAllIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)
	// GetMany returns the subset of ids that still exist, keyed by id.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Problem, error)
	Count(ctx context.Context) (int64, error)
}

// DeletionHandler reacts to a problem leaving the catalogue.
type DeletionHandler func(ctx context.Context, ev DeletedEvent) error
