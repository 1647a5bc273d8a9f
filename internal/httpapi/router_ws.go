package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwizi/job-agent/internal/gateway"
)

const (
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type wsInbound struct {
	Text string `json:"text"`
}

// handleWebSocket serves one user per connection; frames are handled in order.
func (r *router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	if r.deps.Gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat gateway is unavailable"})
		return
	}
	userID := strings.TrimSpace(req.URL.Query().Get("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.deps.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	var writeMu sync.Mutex
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(r.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(r.pongWait()))
	})
	go r.wsPingLoop(ctx, conn, &writeMu)

	logger := r.deps.Logger.With("user_id", userID, "connector", "websocket")
	logger.Info("websocket session opened")
	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", "error", err)
			}
			logger.Info("websocket session closed")
			return
		}
		output, err := r.deps.Gateway.HandleMessage(ctx, gateway.MessageInput{
			Connector: "websocket",
			UserID:    userID,
			Text:      inbound.Text,
		})
		if err != nil {
			logger.Error("gateway request failed", "error", err)
			return
		}
		// Pongs are only read inside ReadJSON, so a long turn must not eat the deadline.
		_ = conn.SetReadDeadline(time.Now().Add(r.pongWait()))
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		err = conn.WriteJSON(newChatResponse(output))
		writeMu.Unlock()
		if err != nil {
			logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (r *router) pongWait() time.Duration {
	if r.wsPongWait > 0 {
		return r.wsPongWait
	}
	return wsPongWait
}

func (r *router) wsPingLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
