package httpUsecase

import (
	"context"
	"errors"
	"net/http"

	"room-broker/domain"
)

type GetRoomUseCase interface {
	Execute(ctx context.Context, roomID string) (domain.Room, int, error)
}

type getRoomUseCase struct {
	rooms RoomReader
}

func NewGetRoomUseCase(rooms RoomReader) GetRoomUseCase {
	return &getRoomUseCase{rooms: rooms}
}

func (u *getRoomUseCase) Execute(ctx context.Context, roomID string) (domain.Room, int, error) {
	room, err := u.rooms.Get(ctx, roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return domain.Room{}, http.StatusNotFound, domain.ErrRoomNotFound
		default:
			return domain.Room{}, http.StatusInternalServerError, err
		}
	}
	return room, http.StatusOK, nil
}
