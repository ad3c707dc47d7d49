package services

import (
	"github.com/stretchr/testify/mock"
)

// MockWebSocketHub is a mock for operations.WebSocketHub
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.Called(eventType, step, status, metadata)
}
