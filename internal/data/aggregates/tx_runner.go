package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

type TxRunner interface {
	// InTx commits when fn returns nil and rolls back otherwise. fn must route
	// every query through dbc.Tx.
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormRunner struct{ db *gorm.DB }

func NewGormTxRunner(db *gorm.DB) TxRunner { return gormRunner{db: db} }

func (r gormRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	switch {
	case fn == nil:
		return nil
	case r.db == nil:
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
