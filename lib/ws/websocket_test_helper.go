package ws

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Mock WebSocket connection implementing WebSocketConn interface. Incoming
// frames are fed through the incoming channel, written frames are recorded.
type mockWebSocketConn struct {
	incoming  chan []byte
	mu        sync.Mutex
	closed    bool
	written   [][]byte
	readLimit int64
}

func newMockWebSocketConn() *mockWebSocketConn {
	return &mockWebSocketConn{
		incoming: make(chan []byte, 16),
	}
}

func (m *mockWebSocketConn) SetReadLimit(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = size
}

func (m *mockWebSocketConn) ReadLimit() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLimit
}

// Receive queues a frame for the next ReadMessage call.
func (m *mockWebSocketConn) Receive(data []byte) {
	m.incoming <- data
}

func (m *mockWebSocketConn) ReadMessage() (messageType int, p []byte, err error) {
	message, ok := <-m.incoming
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, message, nil
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return websocket.ErrCloseSent
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, data)
	}
	return nil
}

func (m *mockWebSocketConn) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.written...)
}

func (m *mockWebSocketConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.incoming)
	}
	return nil
}

func (m *mockWebSocketConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *mockWebSocketConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (m *mockWebSocketConn) SetPongHandler(h func(appData string) error) {
	// Mock implementation
}

type mockWriter struct {
	conn *mockWebSocketConn
	buf  bytes.Buffer
}

func (w *mockWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *mockWriter) Close() error {
	return w.conn.WriteMessage(websocket.TextMessage, w.buf.Bytes())
}

func (m *mockWebSocketConn) NextWriter(messageType int) (io.WriteCloser, error) {
	return &mockWriter{conn: m}, nil
}

func NewMockWebSocketConn() WebSocketConn {
	return newMockWebSocketConn()
}
