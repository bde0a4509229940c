package mocks

import (
	"github.com/benmeehan/edac-watchdog/internal/services"
	"github.com/stretchr/testify/mock"
)

// MockTerminator is a mock implementation of the services.Terminator interface
type MockTerminator struct {
	mock.Mock
}

func (m *MockTerminator) Terminate(outcome services.Outcome) {
	m.Called(outcome)
}
