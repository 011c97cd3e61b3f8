package handler

import (
	"context"
	"time"

	httpUsecase "room-broker/internal/api/http/usecase"
)

type GetRoomRequest struct {
	RoomID string `params:"room_id" validate:"required,len=8,hexadecimal"`
}

type GetRoomResponse struct {
	RoomID    string    `json:"room_id"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type GetRoomHandler struct {
	usecase httpUsecase.GetRoomUseCase
}

func NewGetRoomHandler(usecase httpUsecase.GetRoomUseCase) *GetRoomHandler {
	return &GetRoomHandler{
		usecase: usecase,
	}
}

func (h *GetRoomHandler) Handle(ctx context.Context, req *GetRoomRequest) (*GetRoomResponse, int, error) {
	room, status, err := h.usecase.Execute(ctx, req.RoomID)
	if err != nil {
		return nil, status, err
	}

	return &GetRoomResponse{
		RoomID:    room.ID,
		Members:   len(room.Members),
		CreatedAt: room.CreatedAt,
	}, status, nil
}
