package bootstrap

import (
	"room-broker/config"
	httpHandler "room-broker/internal/api/http/handler"
	"room-broker/internal/gateway"
	"room-broker/internal/handler"
	"room-broker/internal/middleware"
	"room-broker/internal/server"

	"github.com/gofiber/fiber/v2"
)

func SetupServer(config config.Config, httpHandlers map[string]interface{}, dispatcher *gateway.Dispatcher) *fiber.App {
	serverConfig := server.Config{
		Port:         config.Server.Port,
		IdleTimeout:  config.Server.IdleTimeout,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		AllowOrigins: config.Server.AllowOrigins,
		AccessLog:    config.App.Version == "dev",
	}

	app := server.NewFiberApp(serverConfig)

	getRoomHandler := httpHandlers["get-room"].(*httpHandler.GetRoomHandler)
	app.Get("/rooms/:room_id", handler.HandleBasic[httpHandler.GetRoomRequest, httpHandler.GetRoomResponse](getRoomHandler))

	rateLimiter := middleware.NewRateLimiter(config.Dispatcher.RateLimit)
	dispatcher.Register(app, rateLimiter.Middleware())

	return app
}
