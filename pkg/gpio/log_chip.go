package gpio

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogChipLines is the number of virtual lines exposed by a log chip.
const LogChipLines = 1

// logChip stands in for a GPIO controller on platforms that have none. Driving
// its line only produces log records.
type logChip struct {
	name   string
	logger zerolog.Logger
}

// NewLogChipOpener returns an opener for virtual chips that log every level change.
func NewLogChipOpener(logger zerolog.Logger) ChipOpener {
	return func(name string) (Chip, error) {
		if name == "" {
			name = "log"
		}
		return &logChip{name: name, logger: logger}, nil
	}
}

func (c *logChip) Name() string { return c.name }

func (c *logChip) Lines() int { return LogChipLines }

func (c *logChip) LineInUse(offset int) (bool, error) { return false, nil }

func (c *logChip) RequestOutput(offset int, initial int, consumer string) (Driver, error) {
	d := &logDriver{
		logger: c.logger.With().Str("chip", c.name).Int("offset", offset).Str("consumer", consumer).Logger(),
	}
	d.value.Store(int32(initial))
	return d, nil
}

func (c *logChip) Close() error { return nil }

type logDriver struct {
	logger zerolog.Logger
	value  atomic.Int32
}

func (d *logDriver) SetValue(value int) error {
	if d.value.Swap(int32(value)) == int32(value) {
		return nil
	}
	if Level(value) == LevelSafe {
		d.logger.Warn().Str("level", LevelSafe.String()).Msg("Fail-safe line asserted")
	} else {
		d.logger.Debug().Str("level", LevelNominal.String()).Msg("Fail-safe line nominal")
	}
	return nil
}

func (d *logDriver) Close() error { return nil }
