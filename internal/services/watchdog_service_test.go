package services_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/benmeehan/edac-watchdog/internal/constants"
	"github.com/benmeehan/edac-watchdog/internal/mocks"
	"github.com/benmeehan/edac-watchdog/internal/services"
	"github.com/benmeehan/edac-watchdog/pkg/gpio"
	"github.com/benmeehan/edac-watchdog/pkg/sensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type lineFixture struct {
	chip     *mocks.MockChip
	driver   *mocks.MockLineDriver
	acquirer services.LineAcquirer
	line     *gpio.FailSafeLine
}

// newLineFixture wires a mocked chip with lineCount free lines through gpio.Acquire.
func newLineFixture(lineCount int) *lineFixture {
	f := &lineFixture{
		chip:   new(mocks.MockChip),
		driver: new(mocks.MockLineDriver),
	}
	f.chip.On("Name").Return("gpiochip0")
	f.chip.On("Lines").Return(lineCount)
	f.chip.On("Close").Return(nil)
	f.chip.On("LineInUse", mock.Anything).Return(false, nil)
	f.chip.On("RequestOutput", 0, 0, gpio.DefaultConsumer).Return(f.driver, nil)

	f.acquirer = services.LineAcquirerFunc(func() (*gpio.FailSafeLine, error) {
		line, err := gpio.Acquire(gpio.AcquireOptions{Chip: "gpiochip0"}, f.chip.Opener(), gpio.NewClaimRegistry(), zerolog.Nop())
		f.line = line
		return line, err
	})
	return f
}

func (f *lineFixture) writes() []int {
	var out []int
	for _, call := range f.driver.Calls {
		if call.Method == "SetValue" {
			out = append(out, call.Arguments.Int(0))
		}
	}
	return out
}

// assertLatched checks that the line ended safe and was never driven nominal afterwards.
func assertLatched(t *testing.T, writes []int) {
	t.Helper()
	require.NotEmpty(t, writes)
	assert.Equal(t, int(gpio.LevelSafe), writes[len(writes)-1])
	for i, level := range writes {
		if level == int(gpio.LevelSafe) {
			assert.NotContains(t, writes[i:], int(gpio.LevelNominal), "nominal level written after safe")
			break
		}
	}
}

func newTerminator() (*mocks.MockTerminator, chan services.Outcome) {
	outcomes := make(chan services.Outcome, 4)
	term := new(mocks.MockTerminator)
	term.On("Terminate", mock.Anything).Run(func(args mock.Arguments) {
		outcomes <- args.Get(0).(services.Outcome)
	}).Return()
	return term, outcomes
}

func TestWatchdogService_NominalUntilStopped(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(0), nil)

	term, outcomes := newTerminator()
	service := services.NewWatchdogService(reader, fixture.acquirer, term, 500*time.Millisecond, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan services.Outcome, 1)
	go func() { result <- service.Run(ctx) }()

	require.Eventually(t, func() bool { return service.Ticks() >= 10 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, constants.StateMonitoring, service.State())
	assert.False(t, service.State().IsTerminal())
	fixture.driver.AssertNotCalled(t, "SetValue", int(gpio.LevelSafe))

	cancel()
	outcome := <-result

	assert.Equal(t, constants.StateStopped, outcome.State)
	assert.True(t, outcome.State.IsTerminal())
	assert.Equal(t, constants.ExitStopped, outcome.ExitCode)
	assert.NoError(t, outcome.Err)
	assert.GreaterOrEqual(t, outcome.Ticks, uint64(10))
	assert.Equal(t, constants.StateStopped, (<-outcomes).State)
	assertLatched(t, fixture.writes())
	assert.Equal(t, gpio.LevelSafe, fixture.line.Level())
}

func TestWatchdogService_UncorrectableErrorsTripFailSafe(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(0), nil).Times(4)
	reader.On("ReadUncorrectableCount").Return(uint64(3), nil)

	term, outcomes := newTerminator()
	service := services.NewWatchdogService(reader, fixture.acquirer, term, 500*time.Millisecond, time.Millisecond, zerolog.Nop())

	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateSafetyTriggered, outcome.State)
	assert.Equal(t, constants.ExitSafetyTriggered, outcome.ExitCode)
	assert.Equal(t, uint64(5), outcome.Ticks)

	var detected *services.UncorrectableErrorsError
	require.ErrorAs(t, outcome.Err, &detected)
	assert.Equal(t, uint64(3), detected.Count)

	assert.Equal(t, outcome, <-outcomes)
	term.AssertNumberOfCalls(t, "Terminate", 1)
	assertLatched(t, fixture.writes())
	reader.AssertNumberOfCalls(t, "ReadUncorrectableCount", 5)
}

func TestWatchdogService_SensorErrorTripsFailSafe(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(0), nil).Once()
	reader.On("ReadUncorrectableCount").Return(uint64(0), &sensor.Error{Kind: sensor.KindUnavailable, Path: "/sys/ue_count"})

	service := services.NewWatchdogService(reader, fixture.acquirer, nil, 500*time.Millisecond, time.Millisecond, zerolog.Nop())
	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateSafetyTriggered, outcome.State)
	assert.Equal(t, constants.ExitSafetyTriggered, outcome.ExitCode)
	assert.ErrorIs(t, outcome.Err, sensor.ErrUnavailable)
	assertLatched(t, fixture.writes())
}

func TestWatchdogService_HungSensorTripsDeadline(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	release := make(chan struct{})
	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(0), nil).Times(2)
	reader.On("ReadUncorrectableCount").Run(func(mock.Arguments) { <-release }).Return(uint64(0), nil)

	term, outcomes := newTerminator()
	window := 50 * time.Millisecond
	service := services.NewWatchdogService(reader, fixture.acquirer, term, window, time.Millisecond, zerolog.Nop())

	result := make(chan services.Outcome, 1)
	go func() { result <- service.Run(context.Background()) }()

	var terminated services.Outcome
	select {
	case terminated = <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("deadline did not fire while the sensor read was blocked")
	}

	assert.Equal(t, constants.StateTimeoutTriggered, terminated.State)
	assert.Equal(t, constants.ExitTimeoutTriggered, terminated.ExitCode)
	assert.Equal(t, constants.StateTimeoutTriggered, service.State())

	var expired *services.DeadlineExpiredError
	require.ErrorAs(t, terminated.Err, &expired)
	assert.Equal(t, window, expired.Window)
	assert.Equal(t, uint64(2), expired.Ticks)

	close(release)
	select {
	case outcome := <-result:
		assert.Equal(t, terminated, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the blocked read completed")
	}

	term.AssertNumberOfCalls(t, "Terminate", 1)
	assertLatched(t, fixture.writes())
}

func TestWatchdogService_OverrunReadTripsDeadline(t *testing.T) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(1))

	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	window := 20 * time.Millisecond
	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(0), nil).Once()
	reader.On("ReadUncorrectableCount").Run(func(mock.Arguments) {
		// Returns a healthy count, but only after the window has elapsed.
		for start := time.Now(); time.Since(start) < 3*window; {
		}
	}).Return(uint64(0), nil)

	term, _ := newTerminator()
	service := services.NewWatchdogService(reader, fixture.acquirer, term, window, time.Millisecond, zerolog.Nop())
	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateTimeoutTriggered, outcome.State)
	assert.Equal(t, constants.ExitTimeoutTriggered, outcome.ExitCode)
	assert.True(t, outcome.State.IsTerminal())
	term.AssertNumberOfCalls(t, "Terminate", 1)
	reader.AssertNumberOfCalls(t, "ReadUncorrectableCount", 2)
	assertLatched(t, fixture.writes())
}

func TestWatchdogService_NoFreeLine(t *testing.T) {
	chip := new(mocks.MockChip)
	chip.On("Name").Return("gpiochip0")
	chip.On("Lines").Return(3)
	chip.On("Close").Return(nil)
	chip.On("LineInUse", mock.Anything).Return(true, nil)

	acquirer := services.LineAcquirerFunc(func() (*gpio.FailSafeLine, error) {
		return gpio.Acquire(gpio.AcquireOptions{Chip: "gpiochip0"}, chip.Opener(), gpio.NewClaimRegistry(), zerolog.Nop())
	})
	reader := new(mocks.MockSensorReader)
	term, outcomes := newTerminator()

	service := services.NewWatchdogService(reader, acquirer, term, 4*time.Millisecond, time.Millisecond, zerolog.Nop())
	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateInitFailed, outcome.State)
	assert.True(t, outcome.State.IsTerminal())
	assert.Equal(t, constants.ExitInitFailed, outcome.ExitCode)
	assert.ErrorIs(t, outcome.Err, gpio.ErrNoFreeLine)
	assert.Equal(t, outcome, <-outcomes)

	chip.AssertNumberOfCalls(t, "LineInUse", 3)
	chip.AssertNotCalled(t, "RequestOutput", mock.Anything, mock.Anything, mock.Anything)
	reader.AssertNotCalled(t, "ReadUncorrectableCount")
}

func TestWatchdogService_ActuationFailure(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", int(gpio.LevelNominal)).Return(nil)
	fixture.driver.On("SetValue", int(gpio.LevelSafe)).Return(errors.New("ioctl: bad file descriptor"))

	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(1), nil)

	service := services.NewWatchdogService(reader, fixture.acquirer, nil, 500*time.Millisecond, time.Millisecond, zerolog.Nop())
	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateSafetyTriggered, outcome.State)
	assert.Equal(t, constants.ExitActuationFailed, outcome.ExitCode)
	assert.ErrorIs(t, outcome.ActuationErr, gpio.ErrDriveFailed)
	assert.True(t, fixture.line.Latched())
}

func TestWatchdogService_NominalDriveFailure(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", int(gpio.LevelNominal)).Return(errors.New("ioctl: device busy"))
	fixture.driver.On("SetValue", int(gpio.LevelSafe)).Return(nil)

	reader := new(mocks.MockSensorReader)

	service := services.NewWatchdogService(reader, fixture.acquirer, nil, 500*time.Millisecond, time.Millisecond, zerolog.Nop())
	outcome := service.Run(context.Background())

	assert.Equal(t, constants.StateSafetyTriggered, outcome.State)
	assert.Equal(t, constants.ExitSafetyTriggered, outcome.ExitCode)
	assert.ErrorIs(t, outcome.Err, gpio.ErrDriveFailed)
	reader.AssertNotCalled(t, "ReadUncorrectableCount")
	assert.Equal(t, gpio.LevelSafe, fixture.line.Level())
}

func TestWatchdogService_RunTwice(t *testing.T) {
	fixture := newLineFixture(4)
	fixture.driver.On("SetValue", mock.Anything).Return(nil)

	reader := new(mocks.MockSensorReader)
	reader.On("ReadUncorrectableCount").Return(uint64(3), nil)

	service := services.NewWatchdogService(reader, fixture.acquirer, nil, 500*time.Millisecond, time.Millisecond, zerolog.Nop())
	first := service.Run(context.Background())
	assert.Equal(t, constants.StateSafetyTriggered, first.State)

	second := service.Run(context.Background())
	assert.ErrorIs(t, second.Err, services.ErrAlreadyRunning)
	assert.Equal(t, constants.ExitAlreadyRunning, second.ExitCode)
	assert.NotEqual(t, constants.ExitInitFailed, second.ExitCode)
	assert.Equal(t, constants.StateSafetyTriggered, service.State())
}

func TestProcessTerminator(t *testing.T) {
	var code int
	term := &services.ProcessTerminator{Logger: zerolog.Nop(), Exit: func(c int) { code = c }}

	term.Terminate(services.Outcome{State: constants.StateTimeoutTriggered, ExitCode: constants.ExitTimeoutTriggered})
	assert.Equal(t, constants.ExitTimeoutTriggered, code)
}

func TestDetectionLatency(t *testing.T) {
	assert.Equal(t, 5*time.Millisecond, services.DetectionLatency(4*time.Millisecond, time.Millisecond, time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, services.DetectionLatency(10*time.Millisecond, 2*time.Millisecond, 0))
}
