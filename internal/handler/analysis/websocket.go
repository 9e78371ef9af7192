package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/gulalabs1-droid/textwingman/backend/internal/service/dynamics"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler answers every "analyze" frame with a fresh analysis, so a
// client can resend the growing transcript as the conversation goes on.
type WebSocketHandler struct {
	svc      Analyzer
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(svc Analyzer) *WebSocketHandler {
	return &WebSocketHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterWebSocketRoutes mounts the socket on r.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/analyze", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxBodyBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, outgoingMessage{Type: "connected"})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, conn, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, msg *inboundMessage) {
	switch msg.Type {
	case "analyze", "score":
	default:
		h.sendError(conn, msg.RequestID, "unsupported message type: "+msg.Type)
		return
	}

	var req dynamics.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(conn, msg.RequestID, "invalid analyze payload")
		return
	}

	var (
		data any
		err  error
	)
	if msg.Type == "score" {
		data, err = h.svc.Score(req)
	} else {
		data, err = h.svc.Analyze(ctx, req)
	}
	if err != nil {
		if errors.Is(err, dynamics.ErrEmptyTranscript) {
			h.sendError(conn, msg.RequestID, err.Error())
			return
		}
		log.Printf("[websocket] %s failed: %v", msg.Type, err)
		h.sendError(conn, msg.RequestID, "analysis failed")
		return
	}

	replyType := "analysis"
	if msg.Type == "score" {
		replyType = "scores"
	}
	h.send(conn, outgoingMessage{Type: replyType, RequestID: msg.RequestID, Data: data})
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msg.Type, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, requestID, message string) {
	h.send(conn, outgoingMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      map[string]string{"message": message},
	})
}

// pingLoop uses WriteControl, which may run concurrently with WriteJSON.
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
