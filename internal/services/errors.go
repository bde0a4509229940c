package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyRunning is returned in the outcome of a second Run call.
var ErrAlreadyRunning = errors.New("watchdog is already running")

// UncorrectableErrorsError reports a non-zero uncorrectable error count.
type UncorrectableErrorsError struct {
	Count uint64
}

func (e *UncorrectableErrorsError) Error() string {
	return fmt.Sprintf("%d uncorrectable memory errors detected", e.Count)
}

// DeadlineExpiredError reports that the monitoring loop failed to rearm the
// deadline within the safety window.
type DeadlineExpiredError struct {
	Window time.Duration
	Ticks  uint64
}

func (e *DeadlineExpiredError) Error() string {
	return fmt.Sprintf("monitoring loop missed the %s deadline after %d ticks", e.Window, e.Ticks)
}
