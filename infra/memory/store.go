// Package memory keeps the room index in process memory. It does not survive
// a restart and is meant for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"room-broker/domain"
)

type RoomStore struct {
	mutex sync.RWMutex
	rooms map[string]domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]domain.Room)}
}

func (s *RoomStore) Get(_ context.Context, roomID string) (domain.Room, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return clone(room), nil
}

func (s *RoomStore) Create(_ context.Context, room domain.Room) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return domain.ErrConflict
	}
	s.rooms[room.ID] = clone(room)
	return nil
}

func (s *RoomStore) Put(_ context.Context, room domain.Room) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rooms[room.ID] = clone(room)
	return nil
}

// Touch is a no-op: rooms held in memory never expire.
func (s *RoomStore) Touch(context.Context, string) error { return nil }

func (s *RoomStore) Delete(_ context.Context, roomID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.rooms, roomID)
	return nil
}

func (s *RoomStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.rooms)
}

func (s *RoomStore) Close() error { return nil }

func clone(room domain.Room) domain.Room {
	room.Members = slices.Clone(room.Members)
	return room
}
