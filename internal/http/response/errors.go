package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/mentiby/tracker-backend/internal/domain/aggregates"
	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/domain/progress"
	"github.com/mentiby/tracker-backend/internal/domain/score"
	"github.com/mentiby/tracker-backend/internal/platform/apierr"
)

// StatusLocked is returned while the time-lock still gates completion.
const StatusLocked = http.StatusLocked

var sentinels = []struct {
	err    error
	status int
	code   string
}{
	{catalogue.ErrProblemNotFound, http.StatusNotFound, "problem_not_found"},
	{progress.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
	{score.ErrAlreadySolved, http.StatusConflict, "already_solved"},
	{progress.ErrNoSession, http.StatusBadRequest, "no_session"},
	{progress.ErrNotCompleted, http.StatusBadRequest, "not_completed"},
	{score.ErrNotSolved, http.StatusBadRequest, "not_solved"},
}

// FromError maps a service error onto an HTTP error. Expected outcomes keep
// their message; anything unclassified becomes an opaque 500.
func FromError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}

	var lock *progress.TimeLockError
	if errors.As(err, &lock) {
		return apierr.New(StatusLocked, "time_locked", lock).
			With("remaining_minutes", lock.RemainingMinutes).
			With("earliest_complete_at", lock.EarliestCompleteAt)
	}
	if transient(err) {
		return apierr.New(http.StatusServiceUnavailable, "retryable", errors.New("temporarily unavailable, retry"))
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return apierr.New(s.status, s.code, s.err)
		}
	}

	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case domainagg.CodeNotFound:
		return apierr.New(http.StatusNotFound, "not_found", err)
	case domainagg.CodeConflict:
		return apierr.New(http.StatusConflict, "conflict", err)
	case domainagg.CodePreconditionFailed:
		return apierr.New(http.StatusBadRequest, "precondition_failed", err)
	}
	return apierr.Internal(errors.New("internal error"))
}

// transient covers store contention: exhausted compare-and-set retries,
// retryable store codes and deadlines.
func transient(err error) bool {
	return errors.Is(err, score.ErrStaleScore) ||
		domainagg.IsCode(err, domainagg.CodeRetryable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// RespondDomainError maps err and writes it. Unclassified errors are attached
// to the gin context so the request logger records the cause.
func RespondDomainError(c *gin.Context, err error) {
	ae := FromError(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondAPIError(c, ae)
}
