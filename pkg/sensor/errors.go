package sensor

import "errors"

// Kind classifies a sensor failure.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindReadFailed  Kind = "read_failed"
)

// Sentinels matched by Error through errors.Is.
var (
	ErrUnavailable = errors.New("sensor unavailable")
	ErrReadFailed  = errors.New("sensor read failed")
)

// Error describes a failed counter read.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := "sensor " + string(e.Kind)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrReadFailed:
		return e.Kind == KindReadFailed
	}
	return false
}
