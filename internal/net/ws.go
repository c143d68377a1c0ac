package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"shellstorm/server"
)

type clientMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type"`
	Weapon string  `json:"weapon,omitempty"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	DZ     float64 `json:"dz"`
	Power  float64 `json:"power,omitempty"`
	SentAt int64   `json:"sentAt,omitempty"`
}

type fireRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Weapon string `json:"weapon"`
	Reason string `json:"reason"`
}

type heartbeatMessage struct {
	Ver        int   `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64 `json:"serverTime"`
	ClientTime int64 `json:"clientTime"`
}

type WSHandlerConfig struct {
	Logger *log.Logger
}

type WSHandler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *server.Hub, cfg WSHandlerConfig) *WSHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the connection, subscribes the agent, and runs the read
// loop until the connection drops.
func (h *WSHandler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	agentID := r.URL.Query().Get("id")
	if agentID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", agentID, err)
		return
	}

	sub, ok := h.hub.Subscribe(agentID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown agent")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(agentID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", agentID, err)
			continue
		}

		switch msg.Type {
		case "fire":
			input := server.FireInput{
				Direction: mgl64.Vec3{msg.DX, msg.DY, msg.DZ},
				Power:     msg.Power,
			}
			if _, err := h.hub.Fire(agentID, msg.Weapon, input); err != nil {
				h.logger.Printf("fire rejected for %s: %v", agentID, err)
				reject := fireRejectMessage{
					Ver:    1,
					Type:   "fire-reject",
					Weapon: msg.Weapon,
					Reason: err.Error(),
				}
				if data, marshalErr := json.Marshal(reject); marshalErr == nil {
					h.writeMessage(sub, conn, data)
				}
			}
		case "heartbeat":
			beat := heartbeatMessage{
				Ver:        1,
				Type:       "heartbeat",
				ServerTime: time.Now().UnixMilli(),
				ClientTime: msg.SentAt,
			}
			if data, marshalErr := json.Marshal(beat); marshalErr == nil {
				h.writeMessage(sub, conn, data)
			}
		default:
			h.logger.Printf("ignoring unknown message type %q from %s", msg.Type, agentID)
		}
	}
}

func (h *WSHandler) writeMessage(sub *server.Subscriber, conn *websocket.Conn, data []byte) {
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
	}
}
