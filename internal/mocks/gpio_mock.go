package mocks

import (
	"github.com/benmeehan/edac-watchdog/pkg/gpio"
	"github.com/stretchr/testify/mock"
)

// MockChip is a mock implementation of the gpio.Chip interface
type MockChip struct {
	mock.Mock
}

func (m *MockChip) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockChip) Lines() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockChip) LineInUse(offset int) (bool, error) {
	args := m.Called(offset)
	return args.Bool(0), args.Error(1)
}

func (m *MockChip) RequestOutput(offset int, initial int, consumer string) (gpio.Driver, error) {
	args := m.Called(offset, initial, consumer)
	driver, _ := args.Get(0).(gpio.Driver)
	return driver, args.Error(1)
}

func (m *MockChip) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Opener returns a gpio.ChipOpener that always hands out this chip.
func (m *MockChip) Opener() gpio.ChipOpener {
	return func(name string) (gpio.Chip, error) {
		return m, nil
	}
}

// MockLineDriver is a mock implementation of the gpio.Driver interface
type MockLineDriver struct {
	mock.Mock
}

func (m *MockLineDriver) SetValue(value int) error {
	args := m.Called(value)
	return args.Error(0)
}

func (m *MockLineDriver) Close() error {
	args := m.Called()
	return args.Error(0)
}
