package gpio

import (
	"sync"
	"sync/atomic"
)

// Level is the logic level driven on the fail-safe line.
type Level int

const (
	// LevelNominal lets the controlled system run normally.
	LevelNominal Level = 0
	// LevelSafe drives the external fail-safe path.
	LevelSafe Level = 1
)

func (l Level) String() string {
	if l == LevelSafe {
		return "safe"
	}
	return "nominal"
}

// Driver writes a value to a requested output line.
type Driver interface {
	SetValue(value int) error
	Close() error
}

// FailSafeLine is the single claimed output of the watchdog.
//
// Set may be called concurrently from the monitoring loop and from the deadline
// callback. Writes are serialised, and once the safe level has been requested the
// line latches: later nominal requests are dropped, so a racing nominal write can
// never land after a safe one.
type FailSafeLine struct {
	chip     string
	offset   int
	consumer string
	driver   Driver
	claims   *ClaimRegistry

	mu       sync.Mutex
	latched  atomic.Bool
	level    atomic.Int32
	released atomic.Bool
}

func newFailSafeLine(chip string, offset int, consumer string, driver Driver, claims *ClaimRegistry) *FailSafeLine {
	return &FailSafeLine{
		chip:     chip,
		offset:   offset,
		consumer: consumer,
		driver:   driver,
		claims:   claims,
	}
}

// Chip returns the name of the chip the line belongs to.
func (l *FailSafeLine) Chip() string { return l.chip }

// Offset returns the line offset on its chip.
func (l *FailSafeLine) Offset() int { return l.offset }

// Consumer returns the label the line was claimed with.
func (l *FailSafeLine) Consumer() string { return l.consumer }

// Set drives the line to level.
func (l *FailSafeLine) Set(level Level) error {
	if level == LevelSafe {
		l.latched.Store(true)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level != LevelSafe && l.latched.Load() {
		return nil
	}
	if l.released.Load() {
		return &LineError{Kind: KindDriveFailed, Chip: l.chip, Offset: l.offset, Err: errReleased}
	}

	if err := l.driver.SetValue(int(level)); err != nil {
		return &LineError{Kind: KindDriveFailed, Chip: l.chip, Offset: l.offset, Err: err}
	}
	l.level.Store(int32(level))
	return nil
}

// AssertSafe drives the fail-safe level.
func (l *FailSafeLine) AssertSafe() error {
	return l.Set(LevelSafe)
}

// SetNominal drives the nominal level unless the line has latched safe.
func (l *FailSafeLine) SetNominal() error {
	return l.Set(LevelNominal)
}

// Level returns the last level successfully written.
func (l *FailSafeLine) Level() Level {
	return Level(l.level.Load())
}

// Latched reports whether the safe level has been requested.
func (l *FailSafeLine) Latched() bool {
	return l.latched.Load()
}

// Release closes the line and drops its claim. The kernel keeps the last
// driven value until the line is requested again.
func (l *FailSafeLine) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released.Swap(true) {
		return nil
	}
	if l.claims != nil {
		l.claims.Release(l.chip, l.offset)
	}
	return l.driver.Close()
}
