package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/edac-watchdog/internal/constants"
	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/benmeehan/edac-watchdog/pkg/file"
	"github.com/benmeehan/edac-watchdog/pkg/gpio"
	"github.com/benmeehan/edac-watchdog/pkg/sensor"
	"github.com/rs/zerolog"
)

// Fail-safe line drivers.
const (
	DriverGPIOCdev = "gpiocdev" // Linux GPIO character device
	DriverLog      = "log"      // No GPIO controller, level changes are logged
)

// Config represents the structure of the configuration file.
type Config struct {
	Sensor struct {
		Path        string `yaml:"path"`         // Path to the uncorrectable error counter
		Format      string `yaml:"format"`       // "text" or "binary"
		BinaryWidth int    `yaml:"binary_width"` // Counter width in bytes for the binary format
	} `yaml:"sensor"`

	FailSafe struct {
		Driver     string `yaml:"driver"`      // "gpiocdev" or "log"
		Chip       string `yaml:"chip"`        // GPIO chip name, e.g. gpiochip0
		BaseOffset int    `yaml:"base_offset"` // First line offset to probe
		ProbeCount int    `yaml:"probe_count"` // Number of lines to probe, 0 for the rest of the chip
		Consumer   string `yaml:"consumer"`    // Consumer label of the claimed line
	} `yaml:"failsafe"`

	Watchdog struct {
		Deadline     time.Duration `yaml:"deadline"`      // Safety window before the fail-safe fires
		PollInterval time.Duration `yaml:"poll_interval"` // Sleep between sensor reads
		TimerJitter  time.Duration `yaml:"timer_jitter"`  // Expected scheduling jitter of the deadline
	} `yaml:"watchdog"`

	Diagnostics models.DiagnosticsConfig `yaml:"diagnostics"`

	Runtime struct {
		LockMemory bool `yaml:"lock_memory"` // mlockall the process to avoid page-fault stalls
	} `yaml:"runtime"`

	Log struct {
		Level string `yaml:"level"` // zerolog level name
	} `yaml:"log"`
}

// LoadConfig loads the YAML configuration from the specified file, applies
// defaults and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}

	ApplyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return &config, nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	var config Config
	config.Diagnostics.Enabled = true
	ApplyDefaults(&config)
	return &config
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(config *Config) {
	if config.Sensor.Path == "" {
		config.Sensor.Path = sensor.DefaultUECountPath
	}
	if config.Sensor.Format == "" {
		config.Sensor.Format = sensor.FormatText
	}
	if config.Sensor.Format == sensor.FormatBinary && config.Sensor.BinaryWidth == 0 {
		config.Sensor.BinaryWidth = 4
	}

	if config.FailSafe.Driver == "" {
		config.FailSafe.Driver = DriverGPIOCdev
	}
	if config.FailSafe.Chip == "" {
		config.FailSafe.Chip = "gpiochip0"
	}
	if config.FailSafe.Consumer == "" {
		config.FailSafe.Consumer = gpio.DefaultConsumer
	}

	if config.Watchdog.Deadline == 0 {
		config.Watchdog.Deadline = constants.DefaultDeadline
	}
	if config.Watchdog.PollInterval == 0 {
		config.Watchdog.PollInterval = constants.DefaultPollInterval
	}
	if config.Watchdog.TimerJitter == 0 {
		config.Watchdog.TimerJitter = constants.DefaultTimerJitter
	}

	if config.Diagnostics.EDACRoot == "" {
		config.Diagnostics.EDACRoot = sensor.DefaultEDACRoot
	}
	if config.Diagnostics.Timeout == 0 {
		config.Diagnostics.Timeout = 2 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = zerolog.InfoLevel.String()
	}
}

// Validate checks configuration correctness. It does not mutate the configuration.
func Validate(config *Config) error {
	var err error

	switch config.Sensor.Format {
	case sensor.FormatText:
	case sensor.FormatBinary:
		if !sensor.ValidBinaryWidth(config.Sensor.BinaryWidth) {
			err = errors.Join(err, fmt.Errorf("sensor.binary_width must be 1, 2, 4 or 8, got %d", config.Sensor.BinaryWidth))
		}
	default:
		err = errors.Join(err, fmt.Errorf("sensor.format %q is not one of text, binary", config.Sensor.Format))
	}

	switch config.FailSafe.Driver {
	case DriverGPIOCdev, DriverLog:
	default:
		err = errors.Join(err, fmt.Errorf("failsafe.driver %q is not one of %s, %s", config.FailSafe.Driver, DriverGPIOCdev, DriverLog))
	}
	if config.FailSafe.BaseOffset < 0 {
		err = errors.Join(err, errors.New("failsafe.base_offset must not be negative"))
	}
	if config.FailSafe.ProbeCount < 0 {
		err = errors.Join(err, errors.New("failsafe.probe_count must not be negative"))
	}

	if config.Watchdog.Deadline <= 0 {
		err = errors.Join(err, errors.New("watchdog.deadline must be positive"))
	}
	if config.Watchdog.PollInterval <= 0 {
		err = errors.Join(err, errors.New("watchdog.poll_interval must be positive"))
	}
	if config.Watchdog.PollInterval >= config.Watchdog.Deadline {
		err = errors.Join(err, fmt.Errorf(
			"watchdog.poll_interval (%s) must be shorter than watchdog.deadline (%s)",
			config.Watchdog.PollInterval, config.Watchdog.Deadline,
		))
	}
	if config.Watchdog.TimerJitter < 0 {
		err = errors.Join(err, errors.New("watchdog.timer_jitter must not be negative"))
	}

	if _, lerr := zerolog.ParseLevel(config.Log.Level); lerr != nil {
		err = errors.Join(err, fmt.Errorf("log.level: %w", lerr))
	}

	return err
}
