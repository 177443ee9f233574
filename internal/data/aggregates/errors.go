package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/score"
)

// Tags for failures raised inside a write body. MapError turns them into codes.
var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrRetryable  = errors.New("aggregate retryable")
)

func tagged(tag error, msg string) error {
	return errors.Join(tag, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func RetryableError(msg string) error  { return tagged(ErrRetryable, msg) }

// sentinelCodes is checked in order; the first errors.Is match wins.
var sentinelCodes = []struct {
	sentinel error
	code     domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrRetryable, domainagg.CodeRetryable},
	{score.ErrStaleScore, domainagg.CodeConflict},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

var sqlStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// Driver text without a typed error, mostly sqlite.
var (
	conflictText  = []string{"duplicate key", "unique constraint", "already exists"}
	retryableText = []string{"deadlock", "serialization", "timeout", "database is locked", "temporar"}
)

// MapError classifies err for op. Errors that already carry a code pass through.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.sentinel) {
			return domainagg.Wrap(sc.code, op, err)
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := sqlStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return domainagg.Wrap(code, op, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, conflictText):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case containsAny(msg, retryableText):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	return domainagg.Wrap(domainagg.CodeInternal, op, err)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
