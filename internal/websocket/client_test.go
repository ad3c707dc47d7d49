package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePumpWritesQueuedFrames(t *testing.T) {
	hub := NewHub(testLogger())
	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, testLogger())

	client.send <- []byte(`{"type":"progress"}`)
	client.send <- []byte(`{"type":"log"}`)
	close(client.send)

	client.WritePump()

	written := mock.GetWrittenMessages()
	require.Len(t, written, 3)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.JSONEq(t, `{"type":"progress"}`, string(written[0].Data))
	assert.Equal(t, websocket.TextMessage, written[1].Type)
	assert.JSONEq(t, `{"type":"log"}`, string(written[1].Data))
	assert.Equal(t, websocket.CloseMessage, written[2].Type)

	assert.Equal(t, int64(2), client.messagesSent)
	assert.False(t, mock.WriteDeadline.IsZero(), "write deadline should be set")
}

func TestWritePumpStopsOnWriteError(t *testing.T) {
	hub := NewHub(testLogger())
	mock := NewMockConnection()
	mock.WriteMessageFunc = func(messageType int, data []byte) error {
		return errors.New("write failed")
	}
	client := NewClientWithConnection(hub, mock, testLogger())

	client.send <- []byte(`{"type":"progress"}`)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop on error")
	}
}

func TestReadPumpUnregistersOnError(t *testing.T) {
	hub := newTestHub(t)

	mock := NewMockConnection()
	mock.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)

	client := NewClientWithConnection(hub, mock, testLogger())
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// The scripted heartbeat is consumed, then the mock errors and the
	// pump must unregister the client and close the connection.
	client.ReadPump()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond, "client was not unregistered")

	assert.Equal(t, int64(1), client.messagesReceived)
	assert.True(t, mock.Closed)
	assert.Equal(t, int64(maxMessageSize), mock.ReadLimit)
	assert.False(t, mock.ReadDeadline.IsZero(), "read deadline should be set")
}

func TestNewClientDefaults(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())

	assert.NotEmpty(t, client.id)
	assert.Equal(t, "127.0.0.1:8080", client.remoteAddr)
	assert.Equal(t, 256, cap(client.send))
	assert.False(t, client.connectedAt.IsZero())
}
