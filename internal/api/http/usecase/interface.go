package httpUsecase

import (
	"context"

	"room-broker/domain"
)

type RoomReader interface {
	Get(ctx context.Context, roomID string) (domain.Room, error)
}
