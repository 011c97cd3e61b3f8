package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"room-broker/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "room:"

// RoomStore keeps each room as a JSON document under room:<id>.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	zap.L().Info("Connected to Redis successfully", zap.String("addr", addr), zap.Int("db", db))
	return client, nil
}

// NewRoomStore wraps client. A positive ttl expires rooms left unused for that
// long, which bounds the damage of a coordinator dying with members. It must
// exceed the longest time a room can stay silent while members are connected.
func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{client: client, ttl: ttl}
}

func roomKey(roomID string) string {
	return keyPrefix + roomID
}

// Get reads the room and, when a ttl is set, restarts its expiry.
func (s *RoomStore) Get(ctx context.Context, roomID string) (domain.Room, error) {
	var cmd *redis.StringCmd
	if s.ttl > 0 {
		cmd = s.client.GetEx(ctx, roomKey(roomID), s.ttl)
	} else {
		cmd = s.client.Get(ctx, roomKey(roomID))
	}
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Room{}, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to get room %s: %w", roomID, err)
	}

	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return domain.Room{}, fmt.Errorf("failed to decode room %s: %w", roomID, err)
	}
	return room, nil
}

func (s *RoomStore) Create(ctx context.Context, room domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", room.ID, err)
	}

	created, err := s.client.SetNX(ctx, roomKey(room.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", room.ID, err)
	}
	if !created {
		return fmt.Errorf("%w: room %s already exists", domain.ErrConflict, room.ID)
	}
	return nil
}

func (s *RoomStore) Put(ctx context.Context, room domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", room.ID, err)
	}
	if err := s.client.Set(ctx, roomKey(room.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store room %s: %w", room.ID, err)
	}
	return nil
}

// Touch restarts the expiry of a room. A room that is already gone is not
// recreated.
func (s *RoomStore) Touch(ctx context.Context, roomID string) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.client.Expire(ctx, roomKey(roomID), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to touch room %s: %w", roomID, err)
	}
	return nil
}

func (s *RoomStore) Delete(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, roomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}
	return nil
}

func (s *RoomStore) Close() error {
	return s.client.Close()
}
