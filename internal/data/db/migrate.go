package db

import (
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Catalogue (owned by the admin surface; read-only here)
		// =========================
		&catalogue.Problem{},

		// =========================
		// Session ledger + completions
		// =========================
		&progress.WorkSession{},
		&progress.Completion{},

		// =========================
		// Score aggregate
		// =========================
		&score.UserScore{},
		&score.LedgerEntry{},
		&score.ReconcileRun{},
	)
}
