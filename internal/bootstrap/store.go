package bootstrap

import (
	"context"

	"room-broker/config"
	"room-broker/domain"
	"room-broker/internal/initializer"

	"go.uber.org/zap"
)

func InitRoomStore(ctx context.Context, config config.Config) domain.RoomStore {
	store, err := initializer.InitRoomStore(ctx, config)
	if err != nil {
		zap.L().Fatal("Failed to initialize room store",
			zap.String("backend", config.Store.Backend),
			zap.Error(err))
	}
	return store
}
