package bootstrap

import (
	"context"

	"room-broker/config"
	"room-broker/domain"
	httpHandler "room-broker/internal/api/http/handler"
	httpUsecase "room-broker/internal/api/http/usecase"
	"room-broker/internal/api/ws/hub"
	wsUsecase "room-broker/internal/api/ws/usecase"
	"room-broker/internal/coordinator"
	"room-broker/internal/gateway"
)

func SetupHTTPHandlers(store domain.RoomStore) map[string]interface{} {
	getRoomUseCase := httpUsecase.NewGetRoomUseCase(store)
	getRoomHandler := httpHandler.NewGetRoomHandler(getRoomUseCase)

	return map[string]interface{}{
		"get-room": getRoomHandler,
	}
}

// SetupCoordinators builds the namespace of room coordinators. Every instance
// shares the store and the event publisher.
func SetupCoordinators(ctx context.Context, config config.Config, store domain.RoomStore, events Messaging) *coordinator.Namespace {
	hubConfig := hub.Config{
		IdleTimeout:        config.Hub.IdleTimeout,
		AssociationTimeout: config.Hub.AssociationTimeout,
		SendBuffer:         config.Hub.SendBuffer,
	}

	shards := 1
	if config.Dispatcher.Routing == gateway.RoutingRoom {
		shards = config.Dispatcher.Shards
	}

	build := func(name string, owns func(string) bool) hub.Factory {
		return wsUsecase.NewRoomCoordinatorFactory(wsUsecase.Dependencies{
			Store:  store,
			Events: events,
			Owns:   owns,
			Shards: shards,
		})
	}
	return coordinator.NewNamespace(ctx, shards, hubConfig, build)
}
