package hub

import (
	"errors"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// readPump turns inbound frames into hub events and ends with exactly one
// close or error event for the socket.
func (h *Hub) readPump(ws *Socket) {
	ws.conn.SetReadLimit(maxMessageSize)
	_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := ws.conn.ReadMessage()
		if err != nil {
			h.enqueue(terminalEvent(ws, err))
			return
		}
		if !h.enqueue(event{kind: eventMessage, ws: ws, data: payload}) {
			return
		}
	}
}

func terminalEvent(ws *Socket, err error) event {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		return event{
			kind:     eventClose,
			ws:       ws,
			code:     closeErr.Code,
			reason:   closeErr.Text,
			wasClean: closeErr.Code != websocket.CloseAbnormalClosure,
		}
	case ws.IsClosed():
		// We closed it first; the read failed because the conn went away.
		code, reason := ws.closeStatus()
		return event{kind: eventClose, ws: ws, code: code, reason: reason, wasClean: true}
	default:
		return event{kind: eventError, ws: ws, err: err}
	}
}

// writePump drains the socket's send queue, pings the peer and writes the
// close frame once the queue is closed.
func (h *Hub) writePump(ws *Socket) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(ws.done)
	}()

	for {
		select {
		case msg, ok := <-ws.send:
			if !ok {
				code, reason := ws.closeStatus()
				_ = ws.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason),
					time.Now().Add(writeWait))
				_ = ws.conn.Close()
				return
			}

			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.L().Debug("websocket write failed",
					zap.String("hub", h.name),
					zap.String("socket_id", ws.id),
					zap.Error(err))
				_ = ws.conn.Close()
				return
			}

		case <-ticker.C:
			if err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = ws.conn.Close()
				return
			}
		}
	}
}
