package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/domain/score"
)

func SeedProblem(tb testing.TB, ctx context.Context, tx *gorm.DB, tier catalogue.Difficulty, points int) *catalogue.Problem {
	tb.Helper()
	now := time.Now().UTC()
	p := &catalogue.Problem{
		ID:         uuid.New(),
		Title:      "problem " + string(tier),
		Difficulty: tier,
		Category:   "General",
		Points:     points,
		Link:       "https://example.test/p",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed problem: %v", err)
	}
	return p
}

// SeedSession inserts a problem-scoped interval; a zero end leaves it open.
func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, problemID uuid.UUID, start, end time.Time) *progress.WorkSession {
	tb.Helper()
	s := &progress.WorkSession{
		ID:        uuid.New(),
		UserID:    userID,
		ProblemID: problemID,
		Scope:     progress.ScopeProblem,
		StartedAt: start.UTC(),
		CreatedAt: start.UTC(),
		UpdatedAt: start.UTC(),
	}
	if !end.IsZero() {
		e := end.UTC()
		s.EndedAt = &e
		s.DurationMinutes = progress.MinutesBetween(start, end)
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedCompletion(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, problemID uuid.UUID, completedAt time.Time) *progress.Completion {
	tb.Helper()
	c := &progress.Completion{
		ID:                uuid.New(),
		UserID:            userID,
		ProblemID:         problemID,
		StartedAt:         completedAt.Add(-time.Hour).UTC(),
		CompletedAt:       completedAt.UTC(),
		ActualMinutes:     60,
		WithinRecommended: true,
		CreatedAt:         completedAt.UTC(),
		UpdatedAt:         completedAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed completion: %v", err)
	}
	return c
}

// SeedScore writes a score root and one ledger entry per problem id, trusting total as given.
func SeedScore(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, total int, problemIDs ...uuid.UUID) *score.UserScore {
	tb.Helper()
	now := time.Now().UTC()
	us := &score.UserScore{UserID: userID, TotalScore: total, Version: 1, CreatedAt: now, UpdatedAt: now}
	if err := tx.WithContext(ctx).Create(us).Error; err != nil {
		tb.Fatalf("seed user score: %v", err)
	}
	for i, pid := range problemIDs {
		e := &score.LedgerEntry{
			ID:        uuid.New(),
			UserID:    userID,
			ProblemID: pid,
			SolvedAt:  now.Add(time.Duration(i) * time.Minute),
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(e).Error; err != nil {
			tb.Fatalf("seed ledger entry: %v", err)
		}
	}
	return us
}
