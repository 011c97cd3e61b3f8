package bootstrap

import (
	"context"

	"room-broker/config"
	"room-broker/domain"
	"room-broker/internal/coordinator"
	"room-broker/internal/gateway"
	"room-broker/internal/server"
	"room-broker/pkg/graceful"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type App struct {
	config       config.Config
	ctx          context.Context
	roomStore    domain.RoomStore
	events       Messaging
	namespace    *coordinator.Namespace
	dispatcher   *gateway.Dispatcher
	fiberApp     *fiber.App
	httpHandlers map[string]interface{}
}

func NewApp(ctx context.Context, config config.Config) *App {
	app := &App{
		config: config,
		ctx:    ctx,
	}
	app.initDependencies()
	return app
}

func (a *App) initDependencies() {
	a.roomStore = InitRoomStore(a.ctx, a.config)
	a.events = SetupMessaging(a.config)
	a.namespace = SetupCoordinators(a.ctx, a.config, a.roomStore, a.events)
	a.dispatcher = gateway.NewDispatcher(a.namespace, a.config.Dispatcher.Routing)
	a.httpHandlers = SetupHTTPHandlers(a.roomStore)
	a.fiberApp = SetupServer(a.config, a.httpHandlers, a.dispatcher)
}

// FiberApp exposes the HTTP app, mainly for tests.
func (a *App) FiberApp() *fiber.App {
	return a.fiberApp
}

func (a *App) Start() {
	go func() {
		if err := server.Start(a.fiberApp, a.config.Server.Host, a.config.Server.Port); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
		}
	}()

	zap.L().Info("Server started on port",
		zap.String("port", a.config.Server.Port),
		zap.String("routing", a.config.Dispatcher.Routing),
		zap.String("store", a.config.Store.Backend))

	graceful.WaitForShutdown(a.fiberApp, a.config.Server.ShutdownTimeout, a.ctx)
	a.Close()
}

// Close stops the coordinators before releasing what they write to.
func (a *App) Close() {
	if err := a.namespace.Close(); err != nil {
		zap.L().Error("Failed to stop coordinators", zap.Error(err))
	}
	if err := a.events.Close(); err != nil {
		zap.L().Error("Failed to close event publisher", zap.Error(err))
	}
	if err := a.roomStore.Close(); err != nil {
		zap.L().Error("Failed to close room store", zap.Error(err))
	}
}
