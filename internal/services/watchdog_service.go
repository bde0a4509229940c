package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benmeehan/edac-watchdog/internal/constants"
	"github.com/benmeehan/edac-watchdog/pkg/deadline"
	"github.com/benmeehan/edac-watchdog/pkg/gpio"
	"github.com/benmeehan/edac-watchdog/pkg/sensor"
	"github.com/rs/zerolog"
)

// LineAcquirer claims the fail-safe output line.
type LineAcquirer interface {
	Acquire() (*gpio.FailSafeLine, error)
}

// LineAcquirerFunc adapts a function to LineAcquirer.
type LineAcquirerFunc func() (*gpio.FailSafeLine, error)

func (f LineAcquirerFunc) Acquire() (*gpio.FailSafeLine, error) {
	return f()
}

// Outcome describes the terminal state the watchdog reached.
type Outcome struct {
	State        constants.WatchdogState
	ExitCode     int
	Err          error // Cause of the transition, nil for a clean stop
	ActuationErr error // Set when the fail-safe level could not be driven
	Ticks        uint64
}

// WatchdogService polls the uncorrectable error counter and drives the
// fail-safe line. The line is asserted when errors are seen, when the counter
// cannot be read, or when the monitoring loop stops rearming the deadline.
type WatchdogService struct {
	sensor       sensor.Reader
	acquirer     LineAcquirer
	terminator   Terminator
	window       time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger

	line  *gpio.FailSafeLine
	timer *deadline.Timer

	running  atomic.Bool
	finished atomic.Bool
	state    atomic.Value
	ticks    atomic.Uint64

	startedAt time.Time
	outcome   Outcome
	done      chan struct{}
}

// NewWatchdogService initializes a new WatchdogService. terminator may be nil,
// in which case Run simply returns the outcome.
func NewWatchdogService(reader sensor.Reader, acquirer LineAcquirer, terminator Terminator,
	window, pollInterval time.Duration, logger zerolog.Logger) *WatchdogService {

	w := &WatchdogService{
		sensor:       reader,
		acquirer:     acquirer,
		terminator:   terminator,
		window:       window,
		pollInterval: pollInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}
	w.state.Store(constants.StateInitializing)
	return w
}

// State returns the current controller state.
func (w *WatchdogService) State() constants.WatchdogState {
	return w.state.Load().(constants.WatchdogState)
}

// Ticks returns the number of completed sensor reads.
func (w *WatchdogService) Ticks() uint64 {
	return w.ticks.Load()
}

// Done is closed once a terminal state has been reached.
func (w *WatchdogService) Done() <-chan struct{} {
	return w.done
}

// Run claims the fail-safe line and monitors until a terminal state is
// reached. Cancelling ctx stops monitoring with the line asserted safe.
//
// When the deadline expires while a read is blocked, the terminator is
// invoked from the timer goroutine; Run returns the same outcome once the
// read completes.
func (w *WatchdogService) Run(ctx context.Context) Outcome {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn().Msg("WatchdogService is already running")
		return Outcome{State: w.State(), ExitCode: constants.ExitAlreadyRunning, Err: ErrAlreadyRunning}
	}
	w.startedAt = time.Now()

	line, err := w.acquirer.Acquire()
	if err != nil {
		return w.finish(constants.StateInitFailed, fmt.Errorf("failed to claim fail-safe line: %w", err), nil)
	}
	w.line = line
	w.timer = deadline.NewTimer(w.onDeadlineExpired)

	if err := w.timer.Arm(w.window); err != nil {
		return w.failSafe(fmt.Errorf("failed to arm deadline: %w", err))
	}

	w.state.Store(constants.StateMonitoring)
	w.logger.Info().
		Str("chip", line.Chip()).
		Int("offset", line.Offset()).
		Dur("deadline", w.window).
		Dur("poll_interval", w.pollInterval).
		Msg("Monitoring started")

	return w.monitor(ctx)
}

func (w *WatchdogService) monitor(ctx context.Context) Outcome {
	sleep := time.NewTimer(w.pollInterval)
	defer sleep.Stop()

	for {
		if w.finished.Load() {
			return w.wait()
		}
		if ctx.Err() != nil {
			return w.stop(ctx)
		}

		if err := w.line.SetNominal(); err != nil {
			return w.failSafe(fmt.Errorf("failed to drive nominal level: %w", err))
		}

		count, err := w.sensor.ReadUncorrectableCount()
		if w.finished.Load() {
			return w.wait()
		}
		if err != nil {
			return w.failSafe(fmt.Errorf("failed to read uncorrectable error count: %w", err))
		}
		tick := w.ticks.Add(1)

		if count > 0 {
			return w.failSafe(&UncorrectableErrorsError{Count: count})
		}

		if err := w.timer.Arm(w.window); err != nil {
			if errors.Is(err, deadline.ErrExpired) {
				// The expiry callback owns the transition.
				return w.wait()
			}
			return w.failSafe(fmt.Errorf("failed to rearm deadline: %w", err))
		}

		if tick == 1 {
			w.logger.Debug().Msg("First sensor read completed")
		}

		sleep.Reset(w.pollInterval)
		select {
		case <-ctx.Done():
			return w.stop(ctx)
		case <-sleep.C:
		}
	}
}

// onDeadlineExpired runs on the timer goroutine.
func (w *WatchdogService) onDeadlineExpired() {
	actuationErr := w.line.AssertSafe()
	w.finish(constants.StateTimeoutTriggered, &DeadlineExpiredError{Window: w.window, Ticks: w.ticks.Load()}, actuationErr)
}

func (w *WatchdogService) failSafe(cause error) Outcome {
	actuationErr := w.line.AssertSafe()
	return w.finish(constants.StateSafetyTriggered, cause, actuationErr)
}

func (w *WatchdogService) stop(ctx context.Context) Outcome {
	w.timer.Disarm()
	actuationErr := w.line.AssertSafe()
	w.logger.Info().Err(context.Cause(ctx)).Msg("Stopping watchdog")
	return w.finish(constants.StateStopped, nil, actuationErr)
}

// finish publishes the first terminal state. Callers have already driven the
// line safe, so no terminal state is observable with the line nominal. Later
// callers wait for the winner and return its outcome.
func (w *WatchdogService) finish(state constants.WatchdogState, cause, actuationErr error) Outcome {
	if !w.finished.CompareAndSwap(false, true) {
		return w.wait()
	}
	if w.timer != nil {
		w.timer.Disarm()
	}

	outcome := Outcome{
		State:        state,
		ExitCode:     constants.ExitCode(state),
		Err:          cause,
		ActuationErr: actuationErr,
		Ticks:        w.ticks.Load(),
	}
	if actuationErr != nil {
		outcome.ExitCode = constants.ExitActuationFailed
	}

	w.outcome = outcome
	w.state.Store(state)
	w.logOutcome(outcome)
	close(w.done)

	if w.terminator != nil {
		w.terminator.Terminate(outcome)
	}
	return outcome
}

func (w *WatchdogService) wait() Outcome {
	<-w.done
	return w.outcome
}

func (w *WatchdogService) logOutcome(outcome Outcome) {
	event := w.logger.Error()
	if outcome.State == constants.StateStopped && outcome.ActuationErr == nil {
		event = w.logger.Info()
	}
	if w.line != nil {
		event = event.
			Str("chip", w.line.Chip()).
			Int("offset", w.line.Offset()).
			Str("level", w.line.Level().String())
	}
	if outcome.ActuationErr != nil {
		event = event.AnErr("actuation_error", outcome.ActuationErr)
	}
	event.
		Err(outcome.Err).
		Str("state", string(outcome.State)).
		Int("exit_code", outcome.ExitCode).
		Uint64("ticks", outcome.Ticks).
		Dur("uptime", time.Since(w.startedAt)).
		Msg("Watchdog reached terminal state")
}

// DetectionLatency returns the guaranteed time from an uncorrectable error
// appearing to the fail-safe line being asserted. A read started just before
// the fault completes within the window or is cut short by the deadline, so
// the bound is the poll interval plus the read budget left in the window plus
// the expected timer jitter.
func DetectionLatency(window, pollInterval, jitter time.Duration) time.Duration {
	readBudget := window - pollInterval
	if readBudget < 0 {
		readBudget = 0
	}
	return pollInterval + readBudget + jitter
}
