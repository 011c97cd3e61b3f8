package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"room-broker/domain"

	"github.com/fasthttp/websocket"
)

// Conn is the server end of a websocket. *websocket.Conn from
// gofiber/contrib/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	SetCloseHandler(h func(code int, text string) error)
	Close() error
}

// Socket is a connection owned by a hub. Its id and attachment outlive the
// hub's actor.
type Socket struct {
	id         string
	conn       Conn
	acceptedAt time.Time
	send       chan []byte
	done       chan struct{}

	mutex       sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
	attachment  []byte
}

func newSocket(id string, conn Conn, sendBuffer int) *Socket {
	return &Socket{
		id:         id,
		conn:       conn,
		acceptedAt: time.Now(),
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

func (s *Socket) ID() string            { return s.id }
func (s *Socket) AcceptedAt() time.Time { return s.acceptedAt }

// Send queues msg without blocking. A full queue drops the message.
func (s *Socket) Send(msg []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return domain.ErrConnectionClosed
	}
	select {
	case s.send <- msg:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

func (s *Socket) SendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return s.Send(payload)
}

// Close flushes queued messages, then sends a close frame with code and
// reason. Only the first call has an effect.
func (s *Socket) Close(code int, reason string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.closeCode = code
	s.closeReason = reason
	close(s.send)
}

func (s *Socket) IsClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

func (s *Socket) closeStatus() (int, string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closeCode == 0 {
		return websocket.CloseNoStatusReceived, ""
	}
	return s.closeCode, s.closeReason
}

// SerializeAttachment stores v as the socket's attachment, replacing any
// previous one. A closed socket keeps the attachment it had.
func (s *Socket) SerializeAttachment(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal attachment: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return domain.ErrConnectionClosed
	}
	s.attachment = payload
	return nil
}

// DeserializeAttachment decodes the attachment into v. It reports false when
// nothing has been attached yet.
func (s *Socket) DeserializeAttachment(v any) (bool, error) {
	s.mutex.Lock()
	payload := s.attachment
	s.mutex.Unlock()

	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal attachment: %w", err)
	}
	return true, nil
}

func (s *Socket) HasAttachment() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.attachment != nil
}
