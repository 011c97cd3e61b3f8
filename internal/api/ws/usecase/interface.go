package wsUsecase

import (
	"context"

	"room-broker/domain"
)

type RoomStore interface {
	Get(ctx context.Context, roomID string) (domain.Room, error)
	Create(ctx context.Context, room domain.Room) error
	Put(ctx context.Context, room domain.Room) error
	Touch(ctx context.Context, roomID string) error
	Delete(ctx context.Context, roomID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.RoomEvent)
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, domain.RoomEvent) {}
