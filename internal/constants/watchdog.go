package constants

import "time"

// WatchdogState is the state of the watchdog controller.
type WatchdogState string

const (
	StateInitializing     WatchdogState = "initializing"
	StateMonitoring       WatchdogState = "monitoring"
	StateSafetyTriggered  WatchdogState = "safety_triggered"
	StateTimeoutTriggered WatchdogState = "timeout_triggered"
	StateInitFailed       WatchdogState = "init_failed"
	StateStopped          WatchdogState = "stopped"
)

// IsTerminal reports whether the process ends in this state.
func (s WatchdogState) IsTerminal() bool {
	switch s {
	case StateSafetyTriggered, StateTimeoutTriggered, StateInitFailed, StateStopped:
		return true
	}
	return false
}

// Safety window defaults, matching the 4ms alarm / 1ms poll of the reference platform.
const (
	DefaultDeadline     = 4 * time.Millisecond
	DefaultPollInterval = 1 * time.Millisecond
	DefaultTimerJitter  = 1 * time.Millisecond
)
