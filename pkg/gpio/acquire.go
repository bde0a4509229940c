package gpio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultConsumer labels the claimed line in the kernel's line info.
const DefaultConsumer = "edac-watchdog-failsafe"

var errReleased = errors.New("line released")

// Chip is a GPIO controller that lines can be probed and requested from.
type Chip interface {
	Name() string
	Lines() int
	LineInUse(offset int) (bool, error)
	RequestOutput(offset int, initial int, consumer string) (Driver, error)
	Close() error
}

// ChipOpener opens a chip by name.
type ChipOpener func(name string) (Chip, error)

// AcquireOptions selects the lines probed by Acquire.
type AcquireOptions struct {
	Chip       string
	BaseOffset int
	// ProbeCount limits the number of offsets probed; zero probes to the end of the chip.
	ProbeCount int
	Consumer   string
}

// Acquire claims the first free line of the chip as an output driven nominal.
// Lines reported in use by the chip, or already held in claims, are skipped.
func Acquire(opts AcquireOptions, open ChipOpener, claims *ClaimRegistry, logger zerolog.Logger) (*FailSafeLine, error) {
	if opts.Consumer == "" {
		opts.Consumer = DefaultConsumer
	}
	if claims == nil {
		claims = NewClaimRegistry()
	}

	chip, err := open(opts.Chip)
	if err != nil {
		return nil, &LineError{Kind: KindChipUnavailable, Chip: opts.Chip, Err: err}
	}
	// Requested lines stay valid after the chip handle is closed.
	defer chip.Close()

	name := chip.Name()
	if name == "" {
		name = opts.Chip
	}

	end := chip.Lines()
	if opts.ProbeCount > 0 && opts.BaseOffset+opts.ProbeCount < end {
		end = opts.BaseOffset + opts.ProbeCount
	}
	if opts.BaseOffset < 0 || opts.BaseOffset >= end {
		return nil, &LineError{
			Kind: KindNoFreeLine,
			Chip: name,
			Err:  fmt.Errorf("probe range [%d,%d) is empty", opts.BaseOffset, end),
		}
	}

	var lastErr error
	for offset := opts.BaseOffset; offset < end; offset++ {
		if holder, held := claims.Holder(name, offset); held {
			logger.Debug().Int("offset", offset).Str("holder", holder).Msg("Line already claimed by this process")
			continue
		}

		used, err := chip.LineInUse(offset)
		if err != nil {
			logger.Debug().Err(err).Int("offset", offset).Msg("Failed to read line info")
			lastErr = err
			continue
		}
		if used {
			continue
		}

		if !claims.Claim(name, offset, opts.Consumer) {
			continue
		}

		driver, err := chip.RequestOutput(offset, int(LevelNominal), opts.Consumer)
		if err != nil {
			claims.Release(name, offset)
			logger.Debug().Err(err).Int("offset", offset).Msg("Failed to request line")
			lastErr = err
			continue
		}

		line := newFailSafeLine(name, offset, opts.Consumer, driver, claims)
		line.level.Store(int32(LevelNominal))

		logger.Info().
			Str("chip", name).
			Int("offset", offset).
			Str("consumer", opts.Consumer).
			Msg("Fail-safe line claimed")
		return line, nil
	}

	return nil, &LineError{Kind: KindNoFreeLine, Chip: name, Err: lastErr}
}
