package hub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"room-broker/domain"
	"room-broker/internal/api/ws/hub"
	"room-broker/internal/api/ws/hub/hubtest"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedClose struct {
	socketID string
	code     int
}

// echoActor replies to every message and records terminal events.
type echoActor struct {
	mu       sync.Mutex
	messages []string
	closes   []recordedClose
	errors   []string
}

func (a *echoActor) WebSocketMessage(_ context.Context, ws *hub.Socket, message []byte) {
	a.mu.Lock()
	a.messages = append(a.messages, string(message))
	a.mu.Unlock()

	if string(message) == "panic" {
		panic("boom")
	}
	if string(message) == "attach" {
		_ = ws.SerializeAttachment(map[string]string{"roomId": "1a2b3c4d"})
	}
	_ = ws.Send(message)
}

func (a *echoActor) WebSocketClose(_ context.Context, ws *hub.Socket, code int, _ string, _ bool) {
	a.mu.Lock()
	a.closes = append(a.closes, recordedClose{socketID: ws.ID(), code: code})
	a.mu.Unlock()
	ws.Close(websocket.CloseNormalClosure, "bye")
}

func (a *echoActor) WebSocketError(_ context.Context, ws *hub.Socket, err error) {
	a.mu.Lock()
	a.errors = append(a.errors, err.Error())
	a.mu.Unlock()
	ws.Close(websocket.CloseInternalServerErr, "error")
}

func (a *echoActor) closeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.closes)
}

func (a *echoActor) errorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

func startHub(t *testing.T, cfg hub.Config) (*hub.Hub, *echoActor) {
	t.Helper()

	actor := &echoActor{}
	h := hub.NewHub("test", func(hub.State) hub.Actor { return actor }, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h, actor
}

func connect(h *hub.Hub) (*hub.Socket, *hubtest.Conn) {
	conn := hubtest.NewConn()
	ws := h.AcceptWebSocket(conn)
	go h.Serve(ws)
	return ws, conn
}

func TestHub_DeliversMessagesInOrder(t *testing.T) {
	h, actor := startHub(t, hub.Config{})
	_, conn := connect(h)

	for _, msg := range []string{"one", "two", "three"} {
		conn.Push(msg)
	}

	assert.Equal(t, "one", string(conn.Next(t)))
	assert.Equal(t, "two", string(conn.Next(t)))
	assert.Equal(t, "three", string(conn.Next(t)))

	actor.mu.Lock()
	defer actor.mu.Unlock()
	assert.Equal(t, []string{"one", "two", "three"}, actor.messages)
}

func TestHub_PeerCloseDeliveredOnceAndReleased(t *testing.T) {
	h, actor := startHub(t, hub.Config{})
	ws, conn := connect(h)

	conn.PeerClose(websocket.CloseGoingAway, "leaving")

	require.Eventually(t, func() bool { return conn.IsClosed() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return actor.closeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := h.Socket(ws.ID())
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "socket must be released after its close event")
	assert.Equal(t, []int{websocket.CloseNormalClosure}, conn.CloseCodes())

	actor.mu.Lock()
	assert.Equal(t, websocket.CloseGoingAway, actor.closes[0].code)
	actor.mu.Unlock()

	// Closing again from the server side is a no-op.
	ws.Close(websocket.CloseNormalClosure, "again")
	assert.ErrorIs(t, ws.Send([]byte("late")), domain.ErrConnectionClosed)
}

func TestHub_TransportErrorDeliveredAsError(t *testing.T) {
	h, actor := startHub(t, hub.Config{})
	_, conn := connect(h)

	conn.Fail(hubtest.ErrBroken)

	require.Eventually(t, func() bool { return actor.errorCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, actor.closeCount())
	require.Eventually(t, func() bool { return len(h.GetWebSockets()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RecoversFromActorPanic(t *testing.T) {
	h, _ := startHub(t, hub.Config{})
	_, conn := connect(h)

	conn.Push("panic")
	conn.Push("still alive")

	assert.Equal(t, "still alive", string(conn.Next(t)))
}

func TestHub_HibernateRebuildsActorAndKeepsAttachments(t *testing.T) {
	h := hub.NewHub("test", func(hub.State) hub.Actor { return &echoActor{} }, hub.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	ws, conn := connect(h)
	conn.Push("attach")
	conn.Next(t)
	assert.Equal(t, int64(1), h.Wakes())

	h.Hibernate()
	conn.Push("after")
	assert.Equal(t, "after", string(conn.Next(t)))
	assert.Equal(t, int64(2), h.Wakes())

	var attachment map[string]string
	ok, err := ws.DeserializeAttachment(&attachment)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1a2b3c4d", attachment["roomId"])
}

func TestHub_IdleTimeoutHibernates(t *testing.T) {
	h, _ := startHub(t, hub.Config{IdleTimeout: 20 * time.Millisecond})
	_, conn := connect(h)

	conn.Push("first")
	conn.Next(t)
	time.Sleep(100 * time.Millisecond)
	conn.Push("second")
	conn.Next(t)

	assert.Equal(t, int64(2), h.Wakes())
}

func TestHub_ClosesUnassociatedSockets(t *testing.T) {
	h, actor := startHub(t, hub.Config{AssociationTimeout: 50 * time.Millisecond})

	_, idle := connect(h)
	_, attached := connect(h)
	attached.Push("attach")
	attached.Next(t)

	require.Eventually(t, func() bool { return idle.IsClosed() }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, idle.CloseCodes(), hub.CloseAssociationTimeout)
	require.Eventually(t, func() bool { return actor.closeCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, attached.IsClosed())
}

func TestSocket_SendBufferFull(t *testing.T) {
	h := hub.NewHub("test", func(hub.State) hub.Actor { return &echoActor{} }, hub.Config{SendBuffer: 1})
	conn := hubtest.NewConn()
	// Closing the conn first stops the write pump from draining the queue.
	require.NoError(t, conn.Close())
	ws := h.AcceptWebSocket(conn)

	require.Eventually(t, func() bool {
		return ws.Send([]byte("x")) == domain.ErrSendBufferFull
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSocket_AttachmentFrozenAfterClose(t *testing.T) {
	h := hub.NewHub("test", func(hub.State) hub.Actor { return &echoActor{} }, hub.Config{})
	ws := h.AcceptWebSocket(hubtest.NewConn())

	require.NoError(t, ws.SerializeAttachment(map[string]string{"roomId": "1a2b3c4d"}))
	ws.Close(websocket.CloseNormalClosure, "")

	err := ws.SerializeAttachment(map[string]string{"roomId": "ffffffff"})
	assert.ErrorIs(t, err, domain.ErrConnectionClosed)

	var got map[string]string
	ok, err := ws.DeserializeAttachment(&got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1a2b3c4d", got["roomId"])
}
