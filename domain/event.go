package domain

import "time"

// Room lifecycle event types published to the event stream.
const (
	EventRoomCreated  = "room_created"
	EventMemberJoined = "member_joined"
	EventMemberLeft   = "member_left"
	EventRoomClosed   = "room_closed"
)

type RoomEvent struct {
	Type         string    `json:"type"`
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Coordinator  string    `json:"coordinator"`
	Members      int       `json:"members"`
	OccurredAt   time.Time `json:"occurred_at"`
}
