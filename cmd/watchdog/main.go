package main

import (
	"os"

	"github.com/benmeehan/edac-watchdog/internal/constants"
	"github.com/rs/zerolog"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger := bootstrapLogger()
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(constants.ExitInvalidConfig)
	}
}

// bootstrapLogger is used until the configured logger exists.
func bootstrapLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newLogger builds the JSON process logger tagged with the run id.
func newLogger(level zerolog.Level, runID string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()
}
