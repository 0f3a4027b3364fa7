package ws

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn is the slice of *websocket.Conn the pumps use, so tests
// can drive them without a network.
type WebSocketConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(size int64)
	NextWriter(messageType int) (io.WriteCloser, error)
}

type WebSocketWrapper struct {
	*websocket.Conn
}

func NewWebSocketWrapper(conn *websocket.Conn) WebSocketConn {
	return &WebSocketWrapper{Conn: conn}
}
