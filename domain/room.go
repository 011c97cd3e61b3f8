package domain

import (
	"context"
	"slices"
	"time"
)

// Room is the durable record of a room: who is in it and when it was opened.
// Members holds connection ids assigned by the hub, never usernames.
type Room struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Room) HasMember(connectionID string) bool {
	return slices.Contains(r.Members, connectionID)
}

// WithoutMember returns a copy of the room with connectionID removed.
func (r Room) WithoutMember(connectionID string) Room {
	members := make([]string, 0, len(r.Members))
	for _, id := range r.Members {
		if id != connectionID {
			members = append(members, id)
		}
	}
	r.Members = members
	return r
}

// WithMember returns a copy of the room with connectionID appended once.
func (r Room) WithMember(connectionID string) Room {
	members := slices.Clone(r.Members)
	if !slices.Contains(members, connectionID) {
		members = append(members, connectionID)
	}
	r.Members = members
	return r
}

// RoomStore is the durable room index. Implementations must survive the
// coordinator being dropped from memory.
type RoomStore interface {
	// Get returns ErrRoomNotFound when the id is unknown.
	Get(ctx context.Context, roomID string) (Room, error)
	// Create returns ErrConflict when the id is already taken.
	Create(ctx context.Context, room Room) error
	Put(ctx context.Context, room Room) error
	// Touch marks a room as still in use. Stores without expiry may ignore it.
	Touch(ctx context.Context, roomID string) error
	Delete(ctx context.Context, roomID string) error
	Close() error
}

// Association is attached to a socket once it creates or joins a room. It is
// the only per-connection state that survives hub hibernation.
type Association struct {
	RoomID   string    `json:"roomId"`
	Username string    `json:"username,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}
