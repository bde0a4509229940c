package gpio

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fail-safe line failure.
type ErrorKind string

const (
	KindChipUnavailable ErrorKind = "chip_unavailable"
	KindNoFreeLine      ErrorKind = "no_free_line"
	KindDriveFailed     ErrorKind = "drive_failed"
)

// Sentinels matched by LineError through errors.Is.
var (
	ErrChipUnavailable = errors.New("gpio chip unavailable")
	ErrNoFreeLine      = errors.New("no free gpio line")
	ErrDriveFailed     = errors.New("gpio line drive failed")
)

// LineError reports a failure to claim or drive the fail-safe line.
type LineError struct {
	Kind   ErrorKind
	Chip   string
	Offset int
	Err    error
}

func (e *LineError) Error() string {
	switch e.Kind {
	case KindChipUnavailable:
		return fmt.Sprintf("gpio chip %s unavailable: %v", e.Chip, e.Err)
	case KindNoFreeLine:
		if e.Err != nil {
			return fmt.Sprintf("no free gpio line on %s: %v", e.Chip, e.Err)
		}
		return fmt.Sprintf("no free gpio line on %s", e.Chip)
	default:
		return fmt.Sprintf("gpio line %s:%d drive failed: %v", e.Chip, e.Offset, e.Err)
	}
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *LineError) Is(target error) bool {
	switch target {
	case ErrChipUnavailable:
		return e.Kind == KindChipUnavailable
	case ErrNoFreeLine:
		return e.Kind == KindNoFreeLine
	case ErrDriveFailed:
		return e.Kind == KindDriveFailed
	}
	return false
}
