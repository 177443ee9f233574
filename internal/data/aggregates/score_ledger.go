package aggregates

import (
	"time"

	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/data/db"
	"github.com/mentiby/tracker-backend/internal/data/repos"
	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/dbctx"
)

const userScoresTable = "user_scores"

// scoreLedger applies ledger entry changes and the matching total_score delta in the
// caller's transaction. The root is read first and written with a version
// compare-and-set; a lost race surfaces as score.ErrStaleScore.
type scoreLedger struct {
	scores repos.UserScoreRepo
	ledger repos.LedgerRepo
	guard  CASGuard
}

type ledgerChange struct {
	Changed bool
	Total   int
	Version int
}

func (l scoreLedger) award(dbc dbctx.Context, op string, userID uuid.UUID, p *catalogue.Problem, solvedAt time.Time) (ledgerChange, error) {
	root, err := l.scores.GetOrInit(dbc, userID)
	if err != nil {
		return ledgerChange{}, err
	}
	if root == nil {
		return ledgerChange{}, InvariantError("score root missing after init")
	}
	existing, err := l.ledger.GetByPair(dbc, userID, p.ID)
	if err != nil {
		return ledgerChange{}, err
	}
	if existing != nil {
		return ledgerChange{Total: root.TotalScore, Version: root.Version}, nil
	}

	entry := &score.LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		ProblemID: p.ID,
		SolvedAt:  solvedAt,
		CreatedAt: solvedAt,
	}
	if err := l.ledger.Create(dbc, entry); err != nil {
		if db.IsUniqueViolation(err) {
			return ledgerChange{}, domainagg.Fail(domainagg.CodeConflict, op, score.ErrAlreadySolved)
		}
		return ledgerChange{}, err
	}
	total := root.TotalScore + p.Points
	if err := l.writeTotal(dbc, root, total, solvedAt); err != nil {
		return ledgerChange{}, err
	}
	return ledgerChange{Changed: true, Total: total, Version: root.Version + 1}, nil
}

// revoke removes the entry for p and subtracts points, clamping at zero.
func (l scoreLedger) revoke(dbc dbctx.Context, userID uuid.UUID, problemID uuid.UUID, points int, now time.Time) (ledgerChange, error) {
	root, err := l.scores.Get(dbc, userID)
	if err != nil {
		return ledgerChange{}, err
	}
	removed, err := l.ledger.DeleteByPair(dbc, userID, problemID)
	if err != nil {
		return ledgerChange{}, err
	}
	if root == nil {
		return ledgerChange{Changed: removed > 0}, nil
	}
	if removed == 0 {
		return ledgerChange{Total: root.TotalScore, Version: root.Version}, nil
	}
	total := root.TotalScore - points
	if total < 0 {
		total = 0
	}
	if err := l.writeTotal(dbc, root, total, now); err != nil {
		return ledgerChange{}, err
	}
	return ledgerChange{Changed: true, Total: total, Version: root.Version + 1}, nil
}

func (l scoreLedger) writeTotal(dbc dbctx.Context, root *score.UserScore, total int, now time.Time) error {
	ok, err := l.guard.UpdateByVersion(dbc, userScoresTable, "user_id", root.UserID, root.Version, map[string]any{
		"total_score": total,
		"updated_at":  now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return score.ErrStaleScore
	}
	return nil
}
