// Package coordinator keeps the named coordinator instances of the process
// and maps routing keys onto them.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	wsHandler "room-broker/internal/api/ws/handler"
	"room-broker/internal/api/ws/hub"
	"room-broker/internal/handler"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DefaultName is the instance every request reaches in single routing mode.
const DefaultName = "default"

// FactoryBuilder returns the actor factory for the instance called name.
// owns reports whether a room id routes to that instance.
type FactoryBuilder func(name string, owns func(roomID string) bool) hub.Factory

type instance struct {
	hub     *hub.Hub
	handler fiber.Handler
}

// Namespace creates coordinator instances on first use and runs each one
// until Close.
type Namespace struct {
	ctx    context.Context
	cancel context.CancelFunc
	config hub.Config
	shards int
	build  FactoryBuilder

	mutex     sync.Mutex
	instances map[string]*instance
}

func NewNamespace(ctx context.Context, shards int, config hub.Config, build FactoryBuilder) *Namespace {
	if shards < 1 {
		shards = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Namespace{
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
		shards:    shards,
		build:     build,
		instances: make(map[string]*instance),
	}
}

// ShardFor maps a routing key (a room id or a handshake key) to the name of
// the instance that owns it.
func (n *Namespace) ShardFor(key string) string {
	if n.shards <= 1 {
		return DefaultName
	}
	return fmt.Sprintf("shard-%d", xxhash.Sum64String(key)%uint64(n.shards))
}

// Get returns the hub for name, starting it if needed.
func (n *Namespace) Get(name string) *hub.Hub {
	return n.get(name).hub
}

func (n *Namespace) get(name string) *instance {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if inst, ok := n.instances[name]; ok {
		return inst
	}

	owns := func(roomID string) bool { return n.ShardFor(roomID) == name }
	h := hub.NewHub(name, n.build(name, owns), n.config)
	go h.Run(n.ctx)

	inst := &instance{
		hub:     h,
		handler: handler.HandleWithFiberWS[wsHandler.WebSocketRoomRequest](wsHandler.NewWebSocketRoomHandler(h)),
	}
	n.instances[name] = inst

	zap.L().Info("coordinator started", zap.String("name", name))
	return inst
}

// Fetch forwards the request to the instance called name and returns
// whatever it answers.
func (n *Namespace) Fetch(name string, c *fiber.Ctx) error {
	return n.get(name).handler(c)
}

// Close stops every instance and waits for their event loops to exit.
func (n *Namespace) Close() error {
	n.cancel()

	n.mutex.Lock()
	hubs := make([]*hub.Hub, 0, len(n.instances))
	for _, inst := range n.instances {
		hubs = append(hubs, inst.hub)
	}
	n.mutex.Unlock()

	for _, h := range hubs {
		<-h.Done()
	}
	return nil
}
