package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockSensorReader is a mock implementation of the sensor.Reader interface
type MockSensorReader struct {
	mock.Mock
}

func (m *MockSensorReader) ReadUncorrectableCount() (uint64, error) {
	args := m.Called()
	return args.Get(0).(uint64), args.Error(1)
}
