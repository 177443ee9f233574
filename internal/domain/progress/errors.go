package progress

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyCompleted = errors.New("problem already completed")
	ErrNoSession        = errors.New("no sessions found; start the problem first")
	ErrNotCompleted     = errors.New("problem was not completed")
)

// TimeLockError is returned when completion is attempted before the earliest allowed time.
type TimeLockError struct {
	EarliestCompleteAt time.Time
	RemainingMinutes   int
}

func (e *TimeLockError) Error() string {
	return fmt.Sprintf("time-lock active: %d minute(s) remaining", e.RemainingMinutes)
}
