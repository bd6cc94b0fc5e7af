package api

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/geoimport/backend/internal/models"
	"github.com/geoimport/backend/internal/store"
)

// WebSocket message types for the progress protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSProgressPayload is pushed whenever import state changes.
type WSProgressPayload struct {
	Sessions []*models.ImportSession `json:"sessions"`
	Files    []models.FileInfo       `json:"files"`
	Stats    store.Stats             `json:"stats"`
}

// WebSocketHandler pushes import progress and workspace stats to clients
// so they see file-by-file progress without polling.
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
	interval time.Duration
}

// NewWebSocketHandler creates a new progress WebSocket handler.
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		interval: 250 * time.Millisecond,
	}
}

// HandleWebSocket upgrades the connection and streams progress updates
// until the client disconnects.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	wsh.handler.log.Debug().Msg("websocket client connected")

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	// Reader goroutine: detect disconnect and forward ping requests.
	// The connection supports one concurrent writer, so every write
	// happens on the loop below; pongs are coalesced if the client
	// pings faster than the loop drains them.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(wsh.interval)
	defer ticker.Stop()

	var last WSProgressPayload
	for {
		select {
		case <-done:
			wsh.handler.log.Debug().Msg("websocket client disconnected")
			return nil
		case <-pings:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case <-ticker.C:
			payload := WSProgressPayload{
				Sessions: wsh.handler.sessions.ListSessions(),
				Files:    wsh.handler.state.Snapshot().Files,
				Stats:    wsh.handler.state.Stats(),
			}
			if reflect.DeepEqual(payload, last) {
				continue
			}
			last = payload

			raw, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypeProgress,
				Payload:   raw,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		wsh.handler.log.Debug().Err(err).Msg("websocket write failed")
	}
}
