// Package gateway validates websocket upgrade requests and forwards them to
// the coordinator instance chosen by the routing policy.
package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	RoutingSingle = "single"
	RoutingRoom   = "room"

	// DefaultKey is the routing key used in single mode.
	DefaultKey = "default"

	websocketPath   = "/websocket"
	upgradeRequired = "Coordinator expected Upgrade: websocket"
)

// Namespace resolves coordinator instances by name.
type Namespace interface {
	Fetch(name string, c *fiber.Ctx) error
	ShardFor(key string) string
}

type Dispatcher struct {
	namespace Namespace
	routing   string
}

func NewDispatcher(namespace Namespace, routing string) *Dispatcher {
	if routing == "" {
		routing = RoutingSingle
	}
	return &Dispatcher{namespace: namespace, routing: routing}
}

// Handle rejects anything that is not a websocket upgrade on a /websocket
// path and otherwise returns the coordinator's response unchanged.
func (d *Dispatcher) Handle(c *fiber.Ctx) error {
	if rejected, err := d.reject(c); rejected {
		return err
	}
	return d.forward(c)
}

// Validate answers malformed requests with 400 or 426 and passes upgrade
// requests on to the next handler.
func (d *Dispatcher) Validate(c *fiber.Ctx) error {
	if rejected, err := d.reject(c); rejected {
		return err
	}
	return c.Next()
}

func (d *Dispatcher) reject(c *fiber.Ctx) (bool, error) {
	if !strings.HasSuffix(c.Path(), websocketPath) {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		return true, c.Status(fiber.StatusBadRequest).Send(nil)
	}

	if c.Get(fiber.HeaderUpgrade) != "websocket" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		return true, c.Status(fiber.StatusUpgradeRequired).SendString(upgradeRequired)
	}
	return false, nil
}

func (d *Dispatcher) forward(c *fiber.Ctx) error {
	key := d.RoutingKey(c)
	zap.L().Debug("dispatching websocket upgrade",
		zap.String("path", c.Path()),
		zap.String("coordinator", key),
		zap.String("request_id", requestID(c)))

	return d.namespace.Fetch(key, c)
}

// RoutingKey names the coordinator instance for the request.
func (d *Dispatcher) RoutingKey(c *fiber.Ctx) string {
	if d.routing != RoutingRoom {
		return DefaultKey
	}
	if room := c.Query("room"); room != "" {
		return d.namespace.ShardFor(room)
	}
	return d.namespace.ShardFor(c.Get(fiber.HeaderSecWebSocketKey))
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

// Register mounts the dispatcher on every path. Malformed requests are
// answered before middleware runs, so middleware such as the rate limiter
// only sees upgrade requests. It must be the last route registered.
func (d *Dispatcher) Register(app *fiber.App, middleware ...fiber.Handler) {
	handlers := make([]fiber.Handler, 0, len(middleware)+2)
	handlers = append(handlers, d.Validate)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, d.forward)
	app.All("/*", handlers...)
}
