package constants

// Exit codes form the contract with the supervising process.
const (
	ExitStopped          = 0 // Operator shutdown, fail-safe asserted
	ExitInvalidConfig    = 2 // Configuration file invalid or missing
	ExitInitFailed       = 3 // Fail-safe line could not be claimed, no protection was active
	ExitSafetyTriggered  = 4 // Uncorrectable errors detected or sensor unreadable
	ExitTimeoutTriggered = 5 // Deadline expired before the monitoring loop rearmed it
	ExitActuationFailed  = 6 // Fail-safe level could not be driven
	ExitAlreadyRunning   = 7 // Run called on a controller that already ran, nothing was done
)

// ExitCode returns the exit code for a terminal state.
func ExitCode(state WatchdogState) int {
	switch state {
	case StateStopped:
		return ExitStopped
	case StateInitFailed:
		return ExitInitFailed
	case StateSafetyTriggered:
		return ExitSafetyTriggered
	case StateTimeoutTriggered:
		return ExitTimeoutTriggered
	default:
		return ExitInitFailed
	}
}
