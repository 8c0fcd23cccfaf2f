package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type clientMessage struct {
	Type string `json:"type"`
}

// handleWebSocket upgrades to WebSocket and streams update events to the
// client. A {"type":"ping"} message from the client is answered with
// {"type":"pong"}; anything else is ignored.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.ID)

	pongs := make(chan struct{}, 1)
	gone := make(chan struct{})

	// Read pump: detect disconnects and answer pings through the writer.
	go func() {
		defer close(gone)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if json.Unmarshal(data, &msg) != nil || msg.Type != "ping" {
				continue
			}
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}()

	// Write pump: the only goroutine that writes to conn.
	for {
		var v any
		select {
		case <-gone:
			return
		case <-pongs:
			v = clientMessage{Type: "pong"}
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			v = ev
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.log.Warn("websocket write failed", zap.String("id", sub.ID), zap.Error(err))
			return
		}
	}
}
