package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloseAssociationTimeout is sent to sockets that never attached any state
// within Config.AssociationTimeout.
const CloseAssociationTimeout = 4001

type Config struct {
	// IdleTimeout is how long the hub keeps its actor in memory without
	// events. Zero keeps it forever.
	IdleTimeout time.Duration
	// AssociationTimeout closes sockets that have no attachment after this
	// long. Zero disables the sweep.
	AssociationTimeout time.Duration
	SendBuffer         int
	EventBuffer        int
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	return c
}

type eventKind int

const (
	eventMessage eventKind = iota
	eventClose
	eventError
	eventHibernate
)

type event struct {
	kind     eventKind
	ws       *Socket
	data     []byte
	code     int
	reason   string
	wasClean bool
	err      error
}

// Hub owns the sockets of one coordinator instance and feeds their events,
// one at a time, to an actor it builds on demand.
type Hub struct {
	name    string
	config  Config
	factory Factory

	mutex   sync.RWMutex
	sockets map[string]*Socket

	events chan event
	done   chan struct{}

	// actor is only touched by the Run goroutine.
	actor Actor
	wakes atomic.Int64
}

func NewHub(name string, factory Factory, config Config) *Hub {
	config = config.withDefaults()
	return &Hub{
		name:    name,
		config:  config,
		factory: factory,
		sockets: make(map[string]*Socket),
		events:  make(chan event, config.EventBuffer),
		done:    make(chan struct{}),
	}
}

func (h *Hub) Name() string { return h.name }

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Wakes reports how many times an actor has been built.
func (h *Hub) Wakes() int64 { return h.wakes.Load() }

func (h *Hub) GetWebSockets() []*Socket {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sockets := make([]*Socket, 0, len(h.sockets))
	for _, ws := range h.sockets {
		sockets = append(sockets, ws)
	}
	return sockets
}

func (h *Hub) Socket(id string) (*Socket, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	ws, ok := h.sockets[id]
	return ws, ok
}

// AcceptWebSocket registers conn with the hub and starts its write pump. The
// socket is eligible for hibernation as soon as this returns.
func (h *Hub) AcceptWebSocket(conn Conn) *Socket {
	ws := newSocket(uuid.NewString(), conn, h.config.SendBuffer)

	// The actor answers peer close frames itself.
	conn.SetCloseHandler(func(int, string) error { return nil })

	h.mutex.Lock()
	h.sockets[ws.id] = ws
	h.mutex.Unlock()

	go h.writePump(ws)

	zap.L().Debug("websocket accepted", zap.String("hub", h.name), zap.String("socket_id", ws.id))
	return ws
}

// Serve reads from ws until the connection ends and waits for the write pump
// to flush. It is meant to run on the goroutine that owns the upgrade.
func (h *Hub) Serve(ws *Socket) {
	h.readPump(ws)
	<-ws.done
}

// Hibernate asks the hub to drop its actor now instead of waiting for the
// idle timeout.
func (h *Hub) Hibernate() {
	h.enqueue(event{kind: eventHibernate})
}

// Run is the hub's event loop. Every actor call happens on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var idleC <-chan time.Time
	var idle *time.Timer
	if h.config.IdleTimeout > 0 {
		idle = time.NewTimer(h.config.IdleTimeout)
		defer idle.Stop()
		idleC = idle.C
	}

	var sweepC <-chan time.Time
	if h.config.AssociationTimeout > 0 {
		sweep := time.NewTicker(sweepInterval(h.config.AssociationTimeout))
		defer sweep.Stop()
		sweepC = sweep.C
	}

	for {
		select {
		case ev := <-h.events:
			h.dispatch(ctx, ev)
			if idle != nil {
				idle.Reset(h.config.IdleTimeout)
			}
		case <-idleC:
			h.hibernate()
		case now := <-sweepC:
			h.closeUnassociated(now)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func sweepInterval(timeout time.Duration) time.Duration {
	interval := timeout / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

func (h *Hub) enqueue(ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) wake() Actor {
	if h.actor == nil {
		h.actor = h.factory(h)
		wakes := h.wakes.Add(1)
		zap.L().Debug("hub woke", zap.String("hub", h.name), zap.Int64("wakes", wakes))
	}
	return h.actor
}

func (h *Hub) hibernate() {
	if h.actor == nil {
		return
	}
	h.actor = nil
	zap.L().Debug("hub hibernated", zap.String("hub", h.name))
}

func (h *Hub) dispatch(ctx context.Context, ev event) {
	if ev.kind == eventHibernate {
		h.hibernate()
		return
	}

	if ev.kind == eventClose || ev.kind == eventError {
		defer h.release(ev.ws)
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("actor handler panicked",
				zap.String("hub", h.name),
				zap.String("socket_id", ev.ws.id),
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	actor := h.wake()
	switch ev.kind {
	case eventMessage:
		actor.WebSocketMessage(ctx, ev.ws, ev.data)
	case eventClose:
		actor.WebSocketClose(ctx, ev.ws, ev.code, ev.reason, ev.wasClean)
	case eventError:
		actor.WebSocketError(ctx, ev.ws, ev.err)
	}
}

// release forgets ws after its terminal event and makes sure its write pump
// stops even if the actor never closed it.
func (h *Hub) release(ws *Socket) {
	h.mutex.Lock()
	delete(h.sockets, ws.id)
	h.mutex.Unlock()

	ws.Close(websocket.CloseNormalClosure, "")
}

func (h *Hub) closeUnassociated(now time.Time) {
	for _, ws := range h.GetWebSockets() {
		if ws.HasAttachment() || now.Sub(ws.AcceptedAt()) < h.config.AssociationTimeout {
			continue
		}
		zap.L().Info("closing unassociated websocket",
			zap.String("hub", h.name),
			zap.String("socket_id", ws.id))
		ws.Close(CloseAssociationTimeout, "association timeout")
	}
}

func (h *Hub) shutdown() {
	for _, ws := range h.GetWebSockets() {
		ws.Close(websocket.CloseGoingAway, "server shutting down")
	}
	zap.L().Info("hub stopped", zap.String("hub", h.name))
}
