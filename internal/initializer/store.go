package initializer

import (
	"context"
	"fmt"

	"room-broker/config"
	"room-broker/domain"
	"room-broker/infra/memory"
	"room-broker/infra/postgres"
	"room-broker/infra/redis"

	"go.uber.org/zap"
)

// InitRoomStore opens the room index selected by store.backend.
func InitRoomStore(ctx context.Context, appConfig config.Config) (domain.RoomStore, error) {
	switch appConfig.Store.Backend {
	case config.StoreMemory, "":
		zap.L().Warn("Using in-memory room store; rooms will not survive a restart")
		return memory.NewRoomStore(), nil

	case config.StoreRedis:
		client, err := redis.NewClient(ctx, appConfig.Redis.Addr(), appConfig.Redis.Password, appConfig.Redis.DB)
		if err != nil {
			return nil, err
		}
		return redis.NewRoomStore(client, appConfig.Redis.RoomTTL), nil

	case config.StorePostgres:
		return postgres.NewRepository(ctx, appConfig.Postgres.DSN())

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, appConfig.Store.Backend)
	}
}
