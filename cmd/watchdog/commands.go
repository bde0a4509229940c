package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/edac-watchdog/internal/services"
	"github.com/benmeehan/edac-watchdog/internal/utils"
	"github.com/benmeehan/edac-watchdog/pkg/file"
	"github.com/benmeehan/edac-watchdog/pkg/gpio"
	"github.com/benmeehan/edac-watchdog/pkg/sensor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "edac-watchdog",
		Short: "Assert a fail-safe GPIO line on uncorrectable memory errors",
		Long: `edac-watchdog polls the EDAC uncorrectable error counter and keeps a GPIO
line at its nominal level while the count is zero. The line is driven to the
fail-safe level when errors are reported, when the counter cannot be read, or
when the monitoring loop misses its deadline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatchdog,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml",
		"path to the YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")

	root.AddCommand(newCheckConfigCommand())
	return root
}

func newCheckConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the detection latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:            %s\n", configFile)
			fmt.Fprintf(out, "sensor:            %s (%s)\n", config.Sensor.Path, config.Sensor.Format)
			fmt.Fprintf(out, "fail-safe line:    %s:%s from offset %d\n",
				config.FailSafe.Driver, config.FailSafe.Chip, config.FailSafe.BaseOffset)
			fmt.Fprintf(out, "deadline:          %s\n", config.Watchdog.Deadline)
			fmt.Fprintf(out, "poll interval:     %s\n", config.Watchdog.PollInterval)
			fmt.Fprintf(out, "detection latency: %s worst case\n", services.DetectionLatency(
				config.Watchdog.Deadline, config.Watchdog.PollInterval, config.Watchdog.TimerJitter))
			return nil
		},
	}
}

// loadConfig reads the configuration and applies the --log-level override.
func loadConfig() (*utils.Config, error) {
	config, err := utils.LoadConfig(configFile, file.NewFileService())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, err := zerolog.ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		config.Log.Level = logLevel
	}
	return config, nil
}

func runWatchdog(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	reader, err := sensor.NewEDACReader(config.Sensor.Path, config.Sensor.Format, config.Sensor.BinaryWidth)
	if err != nil {
		return fmt.Errorf("invalid sensor configuration: %w", err)
	}

	level, _ := zerolog.ParseLevel(config.Log.Level)
	runID := uuid.New().String()
	logger := newLogger(level, runID)

	if config.Runtime.LockMemory {
		if err := utils.LockMemory(); err != nil {
			logger.Warn().Err(err).Msg("Failed to lock process memory, page faults may delay the deadline")
		} else {
			logger.Info().Msg("Process memory locked")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Diagnostics share one deadline so a hung collector cannot delay monitoring.
	diagnosticsCtx, cancelDiagnostics := context.WithTimeout(ctx, config.Diagnostics.Timeout)
	diagnostics := services.NewDiagnosticsService(config.Diagnostics, runID, file.NewFileService(), logger)
	diagnostics.LogSnapshot(diagnosticsCtx)
	_ = diagnostics.Close(diagnosticsCtx)
	cancelDiagnostics()

	opener := gpio.ChipOpener(gpio.OpenCdevChip)
	if config.FailSafe.Driver == utils.DriverLog {
		opener = gpio.NewLogChipOpener(logger)
	}
	claims := gpio.NewClaimRegistry()
	acquirer := services.LineAcquirerFunc(func() (*gpio.FailSafeLine, error) {
		return gpio.Acquire(gpio.AcquireOptions{
			Chip:       config.FailSafe.Chip,
			BaseOffset: config.FailSafe.BaseOffset,
			ProbeCount: config.FailSafe.ProbeCount,
			Consumer:   config.FailSafe.Consumer,
		}, opener, claims, logger)
	})

	logger.Info().
		Str("sensor", reader.Path()).
		Str("driver", config.FailSafe.Driver).
		Dur("deadline", config.Watchdog.Deadline).
		Dur("poll_interval", config.Watchdog.PollInterval).
		Dur("detection_latency", services.DetectionLatency(
			config.Watchdog.Deadline, config.Watchdog.PollInterval, config.Watchdog.TimerJitter)).
		Msg("Starting watchdog")

	watchdog := services.NewWatchdogService(reader, acquirer, services.NewProcessTerminator(logger),
		config.Watchdog.Deadline, config.Watchdog.PollInterval, logger)
	outcome := watchdog.Run(ctx)

	// Only reached when the terminator returns.
	stop()
	os.Exit(outcome.ExitCode)
	return nil
}
