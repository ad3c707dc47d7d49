package websocket

import (
	"time"
)

// Connection abstracts the underlying websocket connection so client
// pumps can be tested against a mock.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads the next message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	// Close closes the connection
	Close() error

	// SetReadDeadline sets the read deadline on the connection
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline sets the write deadline on the connection
	SetWriteDeadline(t time.Time) error

	// SetReadLimit caps the size of a message read from the connection
	SetReadLimit(limit int64)

	// SetPongHandler sets the handler for pong messages
	SetPongHandler(h func(string) error)

	// SetPingHandler sets the handler for ping messages
	SetPingHandler(h func(string) error)

	// SetCloseHandler sets the handler for close messages
	SetCloseHandler(h func(code int, text string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// MetricsCollector is the counter surface the hub and clients report to.
type MetricsCollector interface {
	// RecordConnection records a new connection
	RecordConnection()

	// RecordDisconnection records a disconnection
	RecordDisconnection(duration time.Duration)

	// RecordMessage records message metrics
	RecordMessage(direction string, size int64, success bool)

	// RecordError records an error
	RecordError(errorType string)

	// RecordQueueDepth records the broadcast queue depth
	RecordQueueDepth(depth int64)

	// RecordDroppedMessage records a dropped message
	RecordDroppedMessage()

	// GetSnapshot returns a snapshot of current metrics
	GetSnapshot() map[string]interface{}

	// Reset resets all metrics
	Reset()
}
