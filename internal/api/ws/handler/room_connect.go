package wsHandler

import (
	"context"

	"room-broker/internal/api/ws/hub"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// WebSocketRoomHandler hands upgraded connections to one coordinator hub.
type WebSocketRoomHandler struct {
	hub *hub.Hub
}

type WebSocketRoomRequest struct {
}

func NewWebSocketRoomHandler(h *hub.Hub) *WebSocketRoomHandler {
	return &WebSocketRoomHandler{hub: h}
}

// HandleWS registers the connection before any frame is read and blocks until
// the connection is done, as the upgrader requires.
func (h *WebSocketRoomHandler) HandleWS(c *websocket.Conn, ctx context.Context, req *WebSocketRoomRequest) {
	ws := h.hub.AcceptWebSocket(c)
	zap.L().Debug("websocket connected",
		zap.String("hub", h.hub.Name()),
		zap.String("socket_id", ws.ID()),
		zap.String("remote_addr", c.RemoteAddr().String()))

	h.hub.Serve(ws)
}
