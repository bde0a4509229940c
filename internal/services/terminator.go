package services

import (
	"os"

	"github.com/rs/zerolog"
)

// Terminator ends the process once the watchdog reaches a terminal state.
type Terminator interface {
	Terminate(outcome Outcome)
}

// ProcessTerminator exits the process with the outcome's exit code.
type ProcessTerminator struct {
	Logger zerolog.Logger
	Exit   func(code int)
}

// NewProcessTerminator returns a terminator backed by os.Exit.
func NewProcessTerminator(logger zerolog.Logger) *ProcessTerminator {
	return &ProcessTerminator{Logger: logger, Exit: os.Exit}
}

// Terminate does not return when Exit is os.Exit. It may be called from the
// deadline timer goroutine while the monitoring loop is blocked in a read.
func (p *ProcessTerminator) Terminate(outcome Outcome) {
	p.Logger.Debug().
		Str("state", string(outcome.State)).
		Int("exit_code", outcome.ExitCode).
		Msg("Exiting")
	p.Exit(outcome.ExitCode)
}
