package ws

// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ether/revlog/lib/settings"
	"github.com/ether/revlog/lib/utils"
	"github.com/ether/revlog/lib/ws/ratelimiter"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn WebSocketConn
	// Buffered channel of outbound messages.
	Send      chan []byte
	Room      string
	SessionId string
	RemoteIP  string
}

// Subscribe moves the client into room. The hub's broadcast loop reads
// Room under the same lock.
func (c *Client) Subscribe(room string) {
	c.Hub.ClientsRWMutex.Lock()
	c.Room = room
	c.Hub.ClientsRWMutex.Unlock()
}

func (c *Client) Leave() {
	c.Hub.Unregister <- c
}

// readPump pumps messages from the websocket connection to the Hub.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump(retrievedSettings *settings.Settings, logger *zap.SugaredLogger) {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(retrievedSettings.Socket.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		if err := ratelimiter.CheckRateLimit(ratelimiter.IPAddress(c.RemoteIP), retrievedSettings.Socket.RateLimit); err != nil {
			println("Rate limit exceeded:", err.Error())
			continue
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		decodedMessage := string(message[:])

		if strings.Contains(decodedMessage, "subscribe") {
			var subscribe SubscribeMessage
			err := json.Unmarshal(message, &subscribe)
			if err != nil {
				logger.Error("error unmarshalling", err)
				continue
			}
			c.Subscribe(RoomId(subscribe.Collection, subscribe.RecordId))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from the peer. The initial room comes
// from the collection and recordId query parameters, a subscribe message
// can change it later.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request,
	configSettings *settings.Settings, logger *zap.SugaredLogger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	var room string
	collection := r.URL.Query().Get("collection")
	recordId := r.URL.Query().Get("recordId")
	if collection != "" && recordId != "" {
		room = RoomId(collection, recordId)
	}

	client := &Client{
		Hub:       hub,
		Conn:      NewWebSocketWrapper(conn),
		Send:      make(chan []byte, 256),
		Room:      room,
		SessionId: utils.RandomString(16),
		RemoteIP:  r.RemoteAddr,
	}
	client.Hub.Register <- client
	go client.writePump()
	client.readPump(configSettings, logger)
}
